package lsp

import (
	"context"
	"errors"
	"fqlrun/internal/ports"
	"fqlrun/internal/types"
)

// Multi forwards every notification to each LanguageServer in order and
// joins their errors.
type Multi []ports.LanguageServer

func (m Multi) SetConfig(ctx context.Context, cfg types.Configuration) error {
	var errs []error
	for _, ls := range m {
		if err := ls.SetConfig(ctx, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RefreshSchema(ctx context.Context, schemaVersion string) error {
	var errs []error
	for _, ls := range m {
		if err := ls.RefreshSchema(ctx, schemaVersion); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) ConfigChanged(ctx context.Context, cfg types.Configuration) error {
	return m.SetConfig(ctx, cfg)
}
