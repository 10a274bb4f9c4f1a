package ports

import "context"

// Publisher fans configuration and schema events out to remote listeners.
type Publisher interface {
	Publish(ctx context.Context, topic, eventType string, payload []byte) error
}
