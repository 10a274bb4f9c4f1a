package ports

import (
	"context"
	"fqlrun/internal/types"
)

// ConfigSubscriber is notified whenever the effective configuration changes.
// ConfigChanged is called synchronously, in registration order, with the
// committed snapshot. A returned error is reported but does not stop the
// remaining subscribers.
type ConfigSubscriber interface {
	ConfigChanged(ctx context.Context, cfg types.Configuration) error
}

// ConfigSubscriberFunc adapts a plain function to ConfigSubscriber.
type ConfigSubscriberFunc func(ctx context.Context, cfg types.Configuration) error

func (f ConfigSubscriberFunc) ConfigChanged(ctx context.Context, cfg types.Configuration) error {
	return f(ctx, cfg)
}

// UserNotifier surfaces user-actionable messages (settings problems, warnings).
type UserNotifier interface {
	ConfigurationError(msg string)
	Warning(msg string)
}
