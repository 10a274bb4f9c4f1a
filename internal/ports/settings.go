package ports

import "context"

// SettingsSource is the external settings store the configuration is read from.
// Implementations MUST return ("", false, nil) for a key that is not set.
type SettingsSource interface {
	// Get returns the raw value for key (e.g. "fauna.dbSecret").
	Get(ctx context.Context, key string) (string, bool, error)

	// Changes delivers the set of keys that changed. It is closed by Close.
	// Sources that cannot observe changes return a nil channel.
	Changes() <-chan []string

	Close() error
}

// SettingsWriter is implemented by sources that can also persist values.
// Used by the CLI `config set` command and in tests.
type SettingsWriter interface {
	Set(ctx context.Context, key, value string) error
}
