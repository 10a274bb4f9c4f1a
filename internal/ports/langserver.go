package ports

import (
	"context"
	"fqlrun/internal/types"
)

// LanguageServer is the external analysis process kept in sync with the
// credential configuration. Error replies MUST be returned wrapped in
// types.ErrCollaborator.
type LanguageServer interface {
	SetConfig(ctx context.Context, cfg types.Configuration) error
	RefreshSchema(ctx context.Context, schemaVersion string) error
}
