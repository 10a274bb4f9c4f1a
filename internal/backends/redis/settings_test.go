package redis

import (
	"context"
	"errors"
	"fqlrun/internal/types"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// fakeCommands is an in-memory stand-in for the hash and publish commands.
type fakeCommands struct {
	hashes    map[string]map[string]string
	published map[string][]interface{}
	err       error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{hashes: map[string]map[string]string{}, published: map[string][]interface{}{}}
}

func (f *fakeCommands) HGet(_ context.Context, key, field string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeCommands) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	if f.err != nil {
		return redis.NewMapStringStringResult(nil, f.err)
	}
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeCommands) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published[channel] = append(f.published[channel], message)
	return redis.NewIntResult(1, nil)
}

type RedisTestSuite struct {
	suite.Suite
	cmds  *fakeCommands
	store *SettingsStore
}

func TestRedisTestSuite(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}

func (s *RedisTestSuite) SetupTest() {
	s.cmds = newFakeCommands()
	s.store = NewSettingsStore(s.cmds, "default")
}

func (s *RedisTestSuite) TestGetMissing() {
	_, ok, err := s.store.Get(context.Background(), types.SecretKey)
	s.NoError(err)
	s.False(ok)
}

func (s *RedisTestSuite) TestSetGetPublishes() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, types.SecretKey, "abc"))

	v, ok, err := s.store.Get(ctx, types.SecretKey)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("abc", v)

	s.Equal([]interface{}{types.SecretKey}, s.cmds.published["_fqlrun_settings_changed_default"])

	all, err := s.store.All(ctx)
	s.Require().NoError(err)
	s.Equal(map[string]string{types.SecretKey: "abc"}, all)
}

func (s *RedisTestSuite) TestProfilesAreIsolated() {
	ctx := context.Background()
	other := NewSettingsStore(s.cmds, "staging")
	s.Require().NoError(other.Set(ctx, types.EndpointKey, "https://staging"))
	_, ok, _ := s.store.Get(ctx, types.EndpointKey)
	s.False(ok)
}

func (s *RedisTestSuite) TestErrors() {
	s.cmds.err = errors.New("connection refused")
	_, _, err := s.store.Get(context.Background(), types.SecretKey)
	s.True(errors.Is(err, types.ErrSettingsAccess))
	err = s.store.Set(context.Background(), types.SecretKey, "x")
	s.True(errors.Is(err, types.ErrSettingsAccess))
	s.Nil(s.store.Changes())
	s.NoError(s.store.Close())
}

func (s *RedisTestSuite) TestForwardDeliversKeys() {
	msgs := make(chan *redis.Message, 1)
	s.store.forward(msgs)
	msgs <- &redis.Message{Payload: types.SecretKey + "," + types.EndpointKey}

	select {
	case keys := <-s.store.Changes():
		s.Equal([]string{types.SecretKey, types.EndpointKey}, keys)
	case <-time.After(2 * time.Second):
		s.Fail("no change delivered")
	}

	close(msgs)
	select {
	case <-s.store.stopped:
	case <-time.After(2 * time.Second):
		s.Fail("forwarder did not stop when the subscription ended")
	}
	_, ok := <-s.store.Changes()
	s.False(ok)
}

func (s *RedisTestSuite) TestCloseStopsUnconsumedForwarding() {
	msgs := make(chan *redis.Message, 32)
	s.store.forward(msgs)
	// Nobody reads Changes(): the forwarder fills its buffer and blocks.
	for i := 0; i < 20; i++ {
		msgs <- &redis.Message{Payload: types.SecretKey}
	}
	s.Eventually(func() bool { return len(s.store.changes) == cap(s.store.changes) }, 2*time.Second, 10*time.Millisecond)

	s.Require().NoError(s.store.Close())
	select {
	case <-s.store.stopped:
	case <-time.After(2 * time.Second):
		s.Fail("forwarder still running after Close")
	}
	s.NoError(s.store.Close())
}
