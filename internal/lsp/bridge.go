package lsp

import (
	"context"
	"errors"
	"fqlrun/internal/ports"
	"fqlrun/internal/types"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	MethodInitialize     = "initialize"
	MethodInitialized    = "initialized"
	MethodSetFaunaConfig = "setFaunaConfig"
	MethodRefreshSchema  = "refreshSchema"
	MethodShutdown       = "shutdown"
	MethodExit           = "exit"

	StatusError = "error"

	DefaultCallTimeout = 10 * time.Second
)

type setConfigParams struct {
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

type refreshSchemaParams struct {
	SchemaVersion string `json:"schemaVersion"`
}

// reply is the analysis server's answer to both custom requests.
type reply struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Bridge keeps the analysis server's configuration in sync. It implements
// both ports.LanguageServer and ports.ConfigSubscriber.
type Bridge struct {
	conn    *Conn
	out     ports.Renderer
	timeout time.Duration
}

// NewBridge wraps conn. out, when non-nil, is cleared after every
// configuration reply.
func NewBridge(conn *Conn, out ports.Renderer) *Bridge {
	return &Bridge{conn: conn, out: out, timeout: DefaultCallTimeout}
}

// Initialize runs the LSP initialize handshake.
func (b *Bridge) Initialize(ctx context.Context, rootURI string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	params := map[string]any{
		"processId":    nil,
		"rootUri":      rootURI,
		"capabilities": map[string]any{},
		"clientInfo":   map[string]any{"name": "fqlrun"},
	}
	if err := b.conn.Call(ctx, MethodInitialize, params, nil); err != nil {
		return types.Err(types.ErrCollaborator, err, "initialize")
	}
	return b.conn.Notify(MethodInitialized, map[string]any{})
}

// SetConfig sends the endpoint/secret pair. An error reply is returned
// wrapped in types.ErrCollaborator.
func (b *Bridge) SetConfig(ctx context.Context, cfg types.Configuration) error {
	var r reply
	err := b.call(ctx, MethodSetFaunaConfig, setConfigParams{Endpoint: cfg.Endpoint, Secret: cfg.Secret}, &r)
	if b.out != nil {
		b.out.Clear()
	}
	if err != nil {
		return err
	}
	return r.err()
}

// RefreshSchema tells the server the remote schema changed.
func (b *Bridge) RefreshSchema(ctx context.Context, schemaVersion string) error {
	var r reply
	if err := b.call(ctx, MethodRefreshSchema, refreshSchemaParams{SchemaVersion: schemaVersion}, &r); err != nil {
		return err
	}
	return r.err()
}

func (b *Bridge) ConfigChanged(ctx context.Context, cfg types.Configuration) error {
	return b.SetConfig(ctx, cfg)
}

// Shutdown asks the server to stop and closes the connection.
func (b *Bridge) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.conn.Call(ctx, MethodShutdown, nil, nil); err != nil {
		log.WithError(err).Debug("lsp shutdown")
	}
	_ = b.conn.Notify(MethodExit, nil)
	return b.conn.Close()
}

func (b *Bridge) call(ctx context.Context, method string, params any, r *reply) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.conn.Call(ctx, method, params, r); err != nil {
		log.WithError(err).WithField("method", method).Warn("language server call failed")
		return types.Err(types.ErrCollaborator, err, "%s", method)
	}
	return nil
}

func (r reply) err() error {
	if r.Status != StatusError {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = "language server reported an error"
	}
	return types.Err(types.ErrCollaborator, errors.New(msg), "")
}
