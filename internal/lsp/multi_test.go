package lsp

import (
	"context"
	"errors"
	"fqlrun/internal/types"
)

type countingServer struct {
	configs  int
	refreshs int
	err      error
}

func (c *countingServer) SetConfig(context.Context, types.Configuration) error {
	c.configs++
	return c.err
}

func (c *countingServer) RefreshSchema(context.Context, string) error {
	c.refreshs++
	return c.err
}

func (s *BridgeTestSuite) TestMulti() {
	a := &countingServer{}
	b := &countingServer{err: types.Err(types.ErrCollaborator, errors.New("down"), "")}
	m := Multi{a, b}

	err := m.ConfigChanged(context.Background(), types.Configuration{Secret: "s", Endpoint: "http://x"})
	s.True(errors.Is(err, types.ErrCollaborator))
	s.Equal(1, a.configs)
	s.Equal(1, b.configs)

	err = m.RefreshSchema(context.Background(), "1")
	s.Error(err)
	s.Equal(1, a.refreshs)
	s.Equal(1, b.refreshs)

	s.NoError(Multi{a}.RefreshSchema(context.Background(), "2"))
	s.NoError(Multi(nil).SetConfig(context.Background(), types.Configuration{}))
}
