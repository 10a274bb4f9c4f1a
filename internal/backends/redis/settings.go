package redis

import (
	"context"
	"errors"
	"fmt"
	"fqlrun/internal/types"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	settingsKeyNameTemplate = "_fqlrun_settings_%s"
	channelNameTemplate     = "_fqlrun_settings_changed_%s"
)

// Commands is the subset of *redis.Client used by the settings store.
type Commands interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// SettingsStore keeps settings for one profile in a Redis hash. Writers
// publish the changed key on a per-profile channel so every running instance
// picks the change up.
type SettingsStore struct {
	cli     Commands
	profile string

	changes chan []string
	pubsub  *redis.PubSub
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewSettingsStore(cli Commands, profile string) *SettingsStore {
	return &SettingsStore{cli: cli, profile: profile, done: make(chan struct{})}
}

// Watch subscribes to change notifications for the profile. It must be called
// before Changes() is consumed.
func (s *SettingsStore) Watch(ctx context.Context, cli *redis.Client) error {
	ps := cli.Subscribe(ctx, getChannelName(s.profile))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return types.Err(types.ErrSettingsAccess, err, "subscribe")
	}
	s.pubsub = ps
	s.forward(ps.Channel())
	return nil
}

// forward turns change messages into key sets on Changes() until msgs is
// closed or the store is closed.
func (s *SettingsStore) forward(msgs <-chan *redis.Message) {
	s.changes = make(chan []string, 8)
	s.stopped = make(chan struct{})
	go func() {
		defer close(s.stopped)
		defer close(s.changes)
		for {
			var msg *redis.Message
			select {
			case <-s.done:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				msg = m
			}
			keys := strings.Split(msg.Payload, ",")
			log.WithField("keys", keys).Debug("settings changed in redis")
			select {
			case s.changes <- keys:
			case <-s.done:
				return
			}
		}
	}()
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	out := s.cli.HGet(ctx, getSettingsKey(s.profile), key)
	if err := out.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, types.Err(types.ErrSettingsAccess, err, "")
	}
	return out.Val(), true, nil
}

// Set stores key and notifies other instances.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	if err := s.cli.HSet(ctx, getSettingsKey(s.profile), key, value).Err(); err != nil {
		return types.Err(types.ErrSettingsAccess, err, "")
	}
	if err := s.cli.Publish(ctx, getChannelName(s.profile), key).Err(); err != nil {
		log.WithError(err).Warn("failed to publish settings change")
	}
	return nil
}

// All returns every setting of the profile.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	out := s.cli.HGetAll(ctx, getSettingsKey(s.profile))
	if err := out.Err(); err != nil {
		return nil, types.Err(types.ErrSettingsAccess, err, "")
	}
	return out.Val(), nil
}

func (s *SettingsStore) Changes() <-chan []string { return s.changes }

func (s *SettingsStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.pubsub != nil {
			err = s.pubsub.Close()
		}
	})
	return err
}

func getSettingsKey(profile string) string {
	return fmt.Sprintf(settingsKeyNameTemplate, profile)
}

func getChannelName(profile string) string {
	return fmt.Sprintf(channelNameTemplate, profile)
}
