package api

import (
	"fqlrun/internal/flow"
	"fqlrun/internal/render"
	"fqlrun/internal/types"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const maxQueryBytes = 1 << 20

// ConfigView exposes the current configuration.
type ConfigView interface {
	Current() types.Configuration
}

// Handler serves queries over HTTP. All queries share a single output
// buffer, so they are executed one at a time.
type Handler struct {
	Runner *flow.Orchestrator
	Config ConfigView
	Out    *render.Buffer

	mu sync.Mutex
}

// QueryRequest is the body of POST /query. At most one of Secret, Role and
// Doc takes effect, in that order.
type QueryRequest struct {
	Query  string  `json:"query"`
	Secret *string `json:"secret,omitempty"`
	Role   *string `json:"role,omitempty"`
	Doc    *string `json:"doc,omitempty"`
}

type QueryResponse struct {
	Result string `json:"result"`
	types.Outcome
	Output []string `json:"output"`
}

type ConfigResponse struct {
	Endpoint          string `json:"endpoint"`
	SecretSet         bool   `json:"secret_set"`
	SecretFingerprint string `json:"secret_fingerprint,omitempty"`
}

func NewHandler(runner *flow.Orchestrator, cfg ConfigView, out *render.Buffer) *Handler {
	return &Handler{
		Runner: runner,
		Config: cfg,
		Out:    out,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", h.handleQuery)
	mux.HandleFunc("/roles", h.handleRoles)
	mux.HandleFunc("/config", h.handleConfig)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	var req QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	doc := render.TextDocument{Language: render.LanguageID, Body: req.Query}
	if req.Query == "" {
		doc.Language = ""
	}

	h.mu.Lock()
	h.Out.Clear()
	outcome := h.Runner.Execute(r.Context(), doc, types.NewScope(req.Secret, req.Role, req.Doc))
	lines := h.Out.Lines()
	h.mu.Unlock()

	log.WithFields(log.Fields{
		"outcome": types.OutcomeText[outcome.Kind],
		"status":  outcome.Status,
	}).Info("query served")

	resp := QueryResponse{Result: types.OutcomeText[outcome.Kind], Outcome: outcome, Output: lines}
	if err := writeJSON(w, statusFor(outcome), resp); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roles, err := h.Runner.Roles(r.Context())
	if err != nil {
		log.WithError(err).Warn("listing roles failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if err := writeJSON(w, http.StatusOK, roles); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// handleConfig never returns the secret itself.
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := h.Config.Current()
	resp := ConfigResponse{Endpoint: cfg.Endpoint}
	if cfg.Secret != "" && cfg.Secret != types.EmptySecret {
		resp.SecretSet = true
		resp.SecretFingerprint = types.Fingerprint(cfg.Secret)
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func statusFor(o types.Outcome) int {
	switch o.Kind {
	case types.OutcomeSuccess:
		return http.StatusOK
	case types.OutcomeInput:
		return http.StatusBadRequest
	case types.OutcomeProtocol:
		return http.StatusUnprocessableEntity
	case types.OutcomeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
