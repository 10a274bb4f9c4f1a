// Package lsp talks to the external FQL analysis server over JSON-RPC 2.0
// with LSP base-protocol framing (Content-Length headers).
package lsp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"
)

// MaxFrameBytes bounds a single message from the analysis server.
const MaxFrameBytes = 64 << 20

var (
	ErrClosed        = jsonrpc2.ErrClosed
	ErrFrameTooLarge = errors.New("lsp: frame too large")
)

// RPCError is a JSON-RPC error object returned by the server.
type RPCError = jsonrpc2.Error

const codeMethodNotFound int64 = jsonrpc2.CodeMethodNotFound

// frameCodec writes VS Code style frames and reads them with a size bound. A
// read error closes the connection and fails every pending call.
type frameCodec struct {
	max int64
}

func (c frameCodec) WriteObject(w io.Writer, obj interface{}) error {
	return jsonrpc2.VSCodeObjectCodec{}.WriteObject(w, obj)
}

func (c frameCodec) ReadObject(r *bufio.Reader, v interface{}) error {
	body, err := readFrame(r, c.max)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// Conn is a client-side JSON-RPC connection. Calls may be issued from several
// goroutines.
type Conn struct {
	rpc *jsonrpc2.Conn
}

// NewConn starts reading from rwc in the background.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	stream := jsonrpc2.NewBufferedStream(rwc, frameCodec{max: MaxFrameBytes})
	rpc := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(handle),
		jsonrpc2.SetLogger(log.WithField("component", "lsp")))
	return &Conn{rpc: rpc}
}

// handle refuses server-to-client requests and logs notifications.
func handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	if req.Notif {
		log.WithField("method", req.Method).Debug("lsp notification")
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
}

// Call sends a request and decodes the result into result, if non-nil.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	return c.rpc.Call(ctx, method, params, result)
}

// Notify sends a notification; there is no reply.
func (c *Conn) Notify(method string, params any) error {
	return c.rpc.Notify(context.Background(), method, params)
}

func (c *Conn) Close() error {
	if err := c.rpc.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		return err
	}
	return nil
}

// Done is closed once the connection has stopped.
func (c *Conn) Done() <-chan struct{} { return c.rpc.DisconnectNotify() }

// readFrame reads one Content-Length framed message body of at most max bytes.
func readFrame(r *bufio.Reader, max int64) ([]byte, error) {
	tp := textproto.NewReader(r)
	hdr, err := tp.ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) && len(hdr) == 0 {
			return nil, io.EOF
		}
		return nil, err
	}
	raw := hdr.Get("Content-Length")
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("lsp: bad Content-Length %q", raw)
	}
	if n > max {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
