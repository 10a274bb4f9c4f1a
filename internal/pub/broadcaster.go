// Package pub broadcasts configuration and schema events to remote listeners,
// e.g. other editor sessions sharing the same database.
package pub

import (
	"context"
	"fqlrun/internal/ports"
	"fqlrun/internal/types"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	EventConfigChanged = "config_changed"
	EventSchemaChanged = "schema_changed"
)

// Event is the published payload. Secrets are never published, only a short
// fingerprint so listeners can tell whether their credential is stale.
type Event struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	At                int64  `json:"at"`
	Endpoint          string `json:"endpoint,omitempty"`
	SecretFingerprint string `json:"secret_fingerprint,omitempty"`
	SchemaVersion     string `json:"schema_version,omitempty"`
}

// Broadcaster publishes events to a single topic. It implements
// ports.LanguageServer and ports.ConfigSubscriber so it can sit next to the
// analysis server bridge.
type Broadcaster struct {
	pub   ports.Publisher
	topic string

	mu       sync.Mutex
	endpoint string
}

func NewBroadcaster(p ports.Publisher, topic string) *Broadcaster {
	return &Broadcaster{pub: p, topic: topic}
}

func (b *Broadcaster) SetConfig(ctx context.Context, cfg types.Configuration) error {
	b.mu.Lock()
	b.endpoint = cfg.Endpoint
	b.mu.Unlock()
	return b.publish(ctx, Event{
		Type:              EventConfigChanged,
		Endpoint:          cfg.Endpoint,
		SecretFingerprint: types.Fingerprint(cfg.Secret),
	})
}

func (b *Broadcaster) ConfigChanged(ctx context.Context, cfg types.Configuration) error {
	return b.SetConfig(ctx, cfg)
}

func (b *Broadcaster) RefreshSchema(ctx context.Context, schemaVersion string) error {
	b.mu.Lock()
	endpoint := b.endpoint
	b.mu.Unlock()
	return b.publish(ctx, Event{
		Type:          EventSchemaChanged,
		Endpoint:      endpoint,
		SchemaVersion: schemaVersion,
	})
}

func (b *Broadcaster) publish(ctx context.Context, ev Event) error {
	ev.ID = uuid.NewString()
	ev.At = time.Now().Unix()
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.pub.Publish(ctx, b.topic, ev.Type, payload); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"topic": b.topic,
			"event": ev.Type,
		}).Error("failed to publish event")
		return types.Err(types.ErrCollaborator, err, "publish %s", ev.Type)
	}
	return nil
}
