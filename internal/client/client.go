// Package client is the HTTP query client for one endpoint/secret pair.
package client

import (
	"bytes"
	"context"
	"fmt"
	"fqlrun/internal/types"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	QueryPath = "/query/1"

	DefaultSource      = "fqlrun-v10"
	DefaultHTTPTimeout = 60 * time.Second

	HdrAuthorization = "Authorization"
	HdrSource        = "X-Fauna-Source"
	HdrLastTxnTS     = "X-Last-Txn-Ts"
	HdrTypecheck     = "X-Typecheck"
	HdrFormat        = "X-Format"

	FormatDecorated = "decorated"
	FormatSimple    = "simple"
	FormatTagged    = "tagged"

	maxResponseBytes = 32 << 20
)

// Client issues queries against a single endpoint with a single base secret.
// The pair is immutable: build a new Client when either changes.
// lastTxnTime only moves forward and is sent with every request so reads are
// at least as recent as the newest write this client has observed.
type Client struct {
	endpoint   *url.URL
	secret     string
	source     string
	httpClient *http.Client

	mu          sync.Mutex
	lastTxnTime int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSource sets the client-identifying tag sent in X-Fauna-Source.
func WithSource(tag string) Option {
	return func(c *Client) { c.source = tag }
}

func New(endpoint *url.URL, secret string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		secret:     secret,
		source:     DefaultSource,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromConfig builds a Client for cfg.
func FromConfig(cfg types.Configuration, opts ...Option) (*Client, error) {
	u, err := cfg.EndpointURL()
	if err != nil {
		return nil, types.Err(types.ErrConfiguration, err, "")
	}
	return New(u, cfg.Secret, opts...), nil
}

// QueryOptions are per-call settings. A nil Secret uses the client's secret.
type QueryOptions struct {
	Secret    *string
	Typecheck *bool
	Format    string
}

type queryRequest struct {
	Query string `json:"query"`
}

// Success is the body of a 200/201 response.
type Success struct {
	Data          json.RawMessage `json:"data"`
	Summary       string          `json:"summary,omitempty"`
	StaticType    string          `json:"static_type,omitempty"`
	TxnTS         int64           `json:"txn_ts"`
	Stats         map[string]any  `json:"stats,omitempty"`
	SchemaVersion json.RawMessage `json:"schema_version,omitempty"`
}

// DataText renders Data for display: JSON strings (as produced by the
// decorated format) are unquoted, anything else is returned as raw JSON.
func (s *Success) DataText() string {
	return rawText(s.Data)
}

// SchemaVersionToken returns the schema version as an opaque string, or "" if
// the response did not carry one.
func (s *Success) SchemaVersionToken() string {
	return rawText(s.SchemaVersion)
}

// Decode unmarshals Data into v.
func (s *Success) Decode(v any) error {
	return json.Unmarshal(s.Data, v)
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}

type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Summary string `json:"summary"`
}

func (c *Client) Endpoint() *url.URL { return c.endpoint }

func (c *Client) Secret() string { return c.secret }

func (c *Client) LastTxnTime() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTxnTime
}

// observe raises lastTxnTime to ts if ts is newer.
func (c *Client) observe(ts int64) {
	c.mu.Lock()
	if ts > c.lastTxnTime {
		c.lastTxnTime = ts
	}
	c.mu.Unlock()
}

// Query runs text and returns the decoded success body. Failures are
// *QueryError for a non-2xx response and *TransportError when no response
// was received.
func (c *Client) Query(ctx context.Context, text string, opts QueryOptions) (*Success, error) {
	body, err := json.Marshal(queryRequest{Query: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	u := c.endpoint.ResolveReference(&url.URL{Path: path.Join(c.endpoint.Path, QueryPath)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	secret := c.secret
	if opts.Secret != nil {
		secret = *opts.Secret
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HdrAuthorization, "Bearer "+secret)
	req.Header.Set(HdrSource, c.source)
	req.Header.Set(HdrLastTxnTS, strconv.FormatInt(c.LastTxnTime(), 10))
	if opts.Typecheck != nil {
		req.Header.Set(HdrTypecheck, strconv.FormatBool(*opts.Typecheck))
	}
	if opts.Format != "" {
		req.Header.Set(HdrFormat, opts.Format)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	log.WithFields(log.Fields{
		"endpoint": c.endpoint.Host,
		"status":   resp.StatusCode,
		"bytes":    len(data),
	}).Debug("query response")

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var out Success
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		c.observe(out.TxnTS)
		return &out, nil
	}
	return nil, newQueryError(resp.StatusCode, data)
}

func newQueryError(status int, data []byte) *QueryError {
	qe := &QueryError{Status: status, Message: UnknownErrorMessage}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return qe
	}
	if eb.Error != nil && eb.Error.Message != "" {
		qe.Message = eb.Error.Message
		qe.Code = eb.Error.Code
	}
	qe.Summary = eb.Summary
	return qe
}
