package flow

import (
	"context"
	"errors"
	"fmt"
	"fqlrun/internal/client"
	"fqlrun/internal/ports"
	"fqlrun/internal/scope"
	"fqlrun/internal/types"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultRolesTTL = 30 * time.Second

// Orchestrator runs query documents against the current client and writes the
// outcome to a Renderer. It subscribes to configuration changes and replaces
// its client on each one; a query captures the client when it starts, so a
// swap never affects a query already in flight.
type Orchestrator struct {
	client atomic.Pointer[client.Client]

	ls       ports.LanguageServer
	out      ports.Renderer
	notifier ports.UserNotifier

	clientOpts []client.Option
	rolesTTL   time.Duration
	roles      *TTL[string, client.RolePage]
}

type Option func(*Orchestrator)

// WithClientOptions is applied to every client the orchestrator builds.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *Orchestrator) { o.clientOpts = append(o.clientOpts, opts...) }
}

func WithRolesTTL(d time.Duration) Option {
	return func(o *Orchestrator) { o.rolesTTL = d }
}

// New builds an orchestrator bound to cfg. ls and notifier may be nil.
func New(cfg types.Configuration, ls ports.LanguageServer, out ports.Renderer, notifier ports.UserNotifier, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		ls:       ls,
		out:      out,
		notifier: notifier,
		rolesTTL: DefaultRolesTTL,
		roles:    NewTTL[string, client.RolePage](),
	}
	for _, opt := range opts {
		opt(o)
	}
	cli, err := client.FromConfig(cfg, o.clientOpts...)
	if err != nil {
		return nil, err
	}
	o.client.Store(cli)
	return o, nil
}

// Client returns the client future queries will use.
func (o *Orchestrator) Client() *client.Client {
	return o.client.Load()
}

// ConfigChanged discards the current client and binds a new one to cfg. The
// new client is in place before ConfigChanged returns.
func (o *Orchestrator) ConfigChanged(_ context.Context, cfg types.Configuration) error {
	cli, err := client.FromConfig(cfg, o.clientOpts...)
	if err != nil {
		return err
	}
	o.client.Store(cli)
	o.roles.Purge()
	log.WithField("endpoint", cli.Endpoint().String()).Debug("query client replaced")
	return nil
}

func (o *Orchestrator) RunQuery(ctx context.Context, doc ports.DocumentSource) types.Outcome {
	return o.Execute(ctx, doc, types.NoScope())
}

func (o *Orchestrator) RunQueryAsRole(ctx context.Context, doc ports.DocumentSource, role string) types.Outcome {
	return o.Execute(ctx, doc, types.RoleScope(role))
}

func (o *Orchestrator) RunQueryAsDoc(ctx context.Context, doc ports.DocumentSource, ref string) types.Outcome {
	return o.Execute(ctx, doc, types.DocScope(ref))
}

func (o *Orchestrator) RunQueryWithSecret(ctx context.Context, doc ports.DocumentSource, secret string) types.Outcome {
	return o.Execute(ctx, doc, types.SecretScope(secret))
}

// Execute runs the text of doc under sc and renders the result. It never
// returns an error: every failure, including a panic further down, ends up in
// the returned Outcome and on the Renderer.
func (o *Orchestrator) Execute(ctx context.Context, doc ports.DocumentSource, sc types.Scope) (outcome types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("query execution panicked")
			outcome = types.Outcome{Kind: types.OutcomeInternal, Message: fmt.Sprint(r)}
			o.out.AppendLine(outcome.Message)
		}
	}()

	if doc == nil || !doc.IsQueryDocument() {
		o.warn(NoDocumentMessage)
		return types.Outcome{Kind: types.OutcomeInput, Message: NoDocumentMessage}
	}
	text, err := doc.Text()
	if err != nil {
		msg := types.Err(types.ErrInput, err, "").Error()
		o.warn(msg)
		return types.Outcome{Kind: types.OutcomeInput, Message: msg}
	}

	cli := o.Client()

	o.out.Clear()
	o.out.Show(true)
	if banner := scope.Describe(sc); banner != "" {
		o.out.AppendLine(banner)
		o.out.AppendLine("")
	}

	secret := scope.Resolve(cli.Secret(), sc)
	typecheck := true
	res, err := cli.Query(ctx, text, client.QueryOptions{
		Secret:    &secret,
		Typecheck: &typecheck,
		Format:    client.FormatDecorated,
	})
	if err != nil {
		outcome = classify(err)
		o.renderFailure(outcome)
		log.WithFields(log.Fields{
			"outcome": types.OutcomeText[outcome.Kind],
			"status":  outcome.Status,
			"scope":   types.ScopeKindText[sc.Kind],
		}).Debug("query failed")
		return outcome
	}

	outcome = types.Outcome{
		Kind:          types.OutcomeSuccess,
		Data:          res.DataText(),
		StaticType:    res.StaticType,
		Summary:       res.Summary,
		SchemaVersion: res.SchemaVersionToken(),
	}
	o.renderSuccess(outcome)

	if outcome.SchemaVersion != "" && o.ls != nil {
		// The query already succeeded; a failed refresh is reported on its own.
		if err := o.ls.RefreshSchema(ctx, outcome.SchemaVersion); err != nil {
			log.WithError(err).Warn("schema refresh failed")
			if o.notifier != nil {
				o.notifier.ConfigurationError(err.Error())
			}
		}
	}
	return outcome
}

func (o *Orchestrator) renderSuccess(out types.Outcome) {
	if out.StaticType != "" {
		o.out.AppendLine(StaticTypeLinePrefix + out.StaticType)
		o.out.AppendLine("")
	}
	if out.Summary != "" {
		o.out.AppendLine(out.Summary)
		o.out.AppendLine("")
	}
	o.out.AppendLine(fmt.Sprint(out.Data))
}

func (o *Orchestrator) renderFailure(out types.Outcome) {
	if out.Message != "" {
		o.out.AppendLine(out.Message)
	}
	if out.Summary != "" {
		o.out.AppendLine("")
		o.out.AppendLine(out.Summary)
	}
}

func (o *Orchestrator) warn(msg string) {
	log.Warn(msg)
	if o.notifier != nil {
		o.notifier.Warning(msg)
	}
}

// classify maps a client error to a failure Outcome.
func classify(err error) types.Outcome {
	var qe *client.QueryError
	if errors.As(err, &qe) {
		return types.Outcome{
			Kind:    types.OutcomeProtocol,
			Status:  qe.Status,
			Message: qe.Message,
			Summary: qe.Summary,
		}
	}
	if errors.Is(err, types.ErrTransport) {
		return types.Outcome{Kind: types.OutcomeTransport, Message: err.Error()}
	}
	return types.Outcome{Kind: types.OutcomeInternal, Message: err.Error()}
}
