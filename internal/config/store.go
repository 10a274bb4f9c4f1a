// Package config owns the effective secret/endpoint pair and fans changes out
// to subscribers.
package config

import (
	"context"
	"fqlrun/internal/ports"
	"fqlrun/internal/types"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Store tracks the current Configuration read from a SettingsSource.
// Subscribers are notified synchronously, in registration order, once per
// confirmed change and only after the change is committed.
type Store struct {
	src      ports.SettingsSource
	notifier ports.UserNotifier

	mu   sync.RWMutex
	cfg  types.Configuration
	subs []ports.ConfigSubscriber
}

func New(src ports.SettingsSource, notifier ports.UserNotifier) *Store {
	return &Store{
		src:      src,
		notifier: notifier,
		cfg: types.Configuration{
			Secret:   types.EmptySecret,
			Endpoint: types.DefaultEndpoint,
		},
	}
}

// Initialize reads both settings. A missing secret becomes types.EmptySecret
// without a user-facing error: the first query fails authentication and
// that failure is what the user sees. A missing or invalid endpoint falls back
// to types.DefaultEndpoint.
func (s *Store) Initialize(ctx context.Context) error {
	secret, err := s.read(ctx, types.SecretKey)
	if err != nil {
		return err
	}
	endpoint, err := s.read(ctx, types.EndpointKey)
	if err != nil {
		return err
	}

	cfg := types.Configuration{Secret: secret, Endpoint: endpoint}
	if cfg.Secret == "" {
		log.Info("No database secret configured, queries will fail authentication.")
		cfg.Secret = types.EmptySecret
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = types.DefaultEndpoint
	} else if _, err := types.ParseEndpoint(cfg.Endpoint); err != nil {
		log.WithError(err).Warnf("Falling back to %s", types.DefaultEndpoint)
		cfg.Endpoint = types.DefaultEndpoint
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	log.WithField("endpoint", cfg.Endpoint).Debug("configuration loaded")
	return nil
}

// Current returns the committed configuration.
func (s *Store) Current() types.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Subscribe registers sub for future changes. It is not called with the
// current value; callers pull Current() themselves at startup.
func (s *Store) Subscribe(sub ports.ConfigSubscriber) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// OnExternalChange re-reads every watched key covered by changedKeys and
// notifies subscribers if the secret or endpoint effectively changed. It reports
// whether subscribers were notified.
//
// An empty secret is never adopted: the previous secret is kept and a
// configuration error is surfaced instead. An empty endpoint is ignored.
// An endpoint-only change still propagates when the secret was rejected.
func (s *Store) OnExternalChange(ctx context.Context, changedKeys []string) bool {
	var (
		secret, endpoint string
		problems         []string
	)

	if affects(changedKeys, types.SecretKey) {
		v, err := s.read(ctx, types.SecretKey)
		switch {
		case err != nil:
			log.WithError(err).Error("failed to read secret")
		case v == "":
			problems = append(problems, types.MissingSecretMessage)
		default:
			secret = v
		}
	}

	if affects(changedKeys, types.EndpointKey) {
		v, err := s.read(ctx, types.EndpointKey)
		if err != nil {
			log.WithError(err).Error("failed to read endpoint")
		} else if v != "" {
			if _, perr := types.ParseEndpoint(v); perr != nil {
				problems = append(problems, perr.Error())
			} else {
				endpoint = v
			}
		}
	}

	for _, p := range problems {
		s.reportConfigError(p)
	}
	if secret == "" && endpoint == "" {
		return false
	}

	s.mu.Lock()
	next := s.cfg
	if secret != "" {
		next.Secret = secret
	}
	if endpoint != "" {
		next.Endpoint = endpoint
	}
	if next == s.cfg {
		s.mu.Unlock()
		return false
	}
	s.cfg = next
	subs := append([]ports.ConfigSubscriber(nil), s.subs...)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"endpoint":    next.Endpoint,
		"subscribers": len(subs),
	}).Info("configuration changed")

	for _, sub := range subs {
		if err := sub.ConfigChanged(ctx, next); err != nil {
			log.WithError(err).Error("configuration subscriber failed")
			s.reportConfigError(err.Error())
		}
	}
	return true
}

// Watch feeds change events from the settings source into OnExternalChange
// until ctx is done or the source closes its channel.
func (s *Store) Watch(ctx context.Context) {
	ch := s.src.Changes()
	if ch == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case keys, ok := <-ch:
			if !ok {
				return
			}
			s.OnExternalChange(ctx, keys)
		}
	}
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	v, ok, err := s.src.Get(ctx, key)
	if err != nil {
		return "", types.Err(types.ErrSettingsAccess, err, "read %s", key)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(v), nil
}

func (s *Store) reportConfigError(msg string) {
	log.WithField("reason", msg).Warn("configuration error")
	if s.notifier != nil {
		s.notifier.ConfigurationError(msg)
	}
}

// affects reports whether key, or the section containing it, is in changed.
func affects(changed []string, key string) bool {
	for _, c := range changed {
		if c == key || strings.HasPrefix(key, c+".") {
			return true
		}
	}
	return false
}
