package flow

import (
	"context"
	"errors"
	"fqlrun/internal/render"
	"fqlrun/internal/types"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

func (s *UnitTestSuite) TestRunQuerySuccess() {
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("2 + 3"))

	s.Equal(types.OutcomeSuccess, outcome.Kind)
	s.Equal("5", outcome.Data)
	s.Equal("Number", outcome.StaticType)
	s.Equal(int64(100), s.orch.Client().LastTxnTime())

	s.Require().Len(s.requests(), 1)
	s.Equal("Bearer abc", s.requests()[0].auth)
	s.Equal("2 + 3", s.requests()[0].query)
	s.Equal([]string{"static type: Number", "", "5"}, s.out.Lines())
	s.True(s.out.Shown())
	s.Empty(s.ls.refreshed)
}

func (s *UnitTestSuite) TestRunQueryWithSummary() {
	s.setResponse(reply(http.StatusOK, `{"data": "[1, 2]", "summary": "info: hint", "txn_ts": 1}`))
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("[1, 2]"))
	s.True(outcome.OK())
	s.Equal([]string{"info: hint", "", "[1, 2]"}, s.out.Lines())
}

func (s *UnitTestSuite) TestNoDocumentIsInputError() {
	outcome := s.orch.RunQuery(context.Background(), nil)
	s.Equal(types.OutcomeInput, outcome.Kind)
	s.Equal(NoDocumentMessage, outcome.Message)

	outcome = s.orch.RunQuery(context.Background(), render.TextDocument{Language: "markdown", Body: "2 + 3"})
	s.Equal(types.OutcomeInput, outcome.Kind)

	outcome = s.orch.RunQuery(context.Background(), render.FileDocument{Path: "/nonexistent/query.fql"})
	s.Equal(types.OutcomeInput, outcome.Kind)

	s.Empty(s.requests())
	s.Len(s.notifier.warnings, 3)
	s.Empty(s.out.Lines())
}

func (s *UnitTestSuite) TestScopedQueries() {
	ctx := context.Background()

	s.orch.RunQueryAsRole(ctx, fqlDoc("1"), "admin")
	s.Equal([]string{"query run with role: admin", "", "static type: Number", "", "5"}, s.out.Lines())

	s.orch.RunQueryAsRole(ctx, fqlDoc("1"), "editor")
	s.orch.RunQueryAsDoc(ctx, fqlDoc("1"), "User/42")
	s.orch.RunQueryWithSecret(ctx, fqlDoc("1"), "T")
	s.Equal("query run with secret: "+types.Fingerprint("T"), s.out.Lines()[0])

	reqs := s.requests()
	s.Require().Len(reqs, 4)
	s.Equal("Bearer abc:admin", reqs[0].auth)
	s.Equal("Bearer abc:@role/editor", reqs[1].auth)
	s.Equal("Bearer abc:@doc/User/42", reqs[2].auth)
	s.Equal("Bearer T", reqs[3].auth)
	// The base secret is untouched by scoped queries.
	s.Equal("abc", s.orch.Client().Secret())
}

func (s *UnitTestSuite) TestProtocolFailure() {
	s.setResponse(reply(http.StatusUnauthorized, `{"error": {"code": "unauthorized", "message": "Invalid secret"}, "summary": "error: Invalid secret"}`))
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("1"))

	s.Equal(types.OutcomeProtocol, outcome.Kind)
	s.Equal(http.StatusUnauthorized, outcome.Status)
	s.Equal("Invalid secret", outcome.Message)
	s.Equal([]string{"Invalid secret", "", "error: Invalid secret"}, s.out.Lines())
}

// A placeholder secret yields a clean server-reported failure, never a crash.
func (s *UnitTestSuite) TestPlaceholderSecretFailsCleanly() {
	s.setResponse(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+types.EmptySecret {
			reply(http.StatusUnauthorized, `{"error": {"code": "unauthorized", "message": "Invalid token"}}`)(w, r)
			return
		}
		reply(http.StatusOK, `{"data": "5", "txn_ts": 1}`)(w, r)
	})
	s.Require().NoError(s.orch.ConfigChanged(context.Background(), types.Configuration{Secret: types.EmptySecret, Endpoint: s.srv.URL}))
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("1"))
	s.Equal(types.OutcomeProtocol, outcome.Kind)
	s.Equal("Invalid token", outcome.Message)
	s.Equal([]string{"Invalid token"}, s.out.Lines())
}

func (s *UnitTestSuite) TestTransportFailure() {
	s.srv.Close()
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("1"))
	s.Equal(types.OutcomeTransport, outcome.Kind)
	s.NotEmpty(outcome.Message)
	s.Equal([]string{outcome.Message}, s.out.Lines())
}

func (s *UnitTestSuite) TestUndecodableSuccessIsStringified() {
	s.setResponse(reply(http.StatusOK, `not json`))
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("1"))
	s.Equal(types.OutcomeInternal, outcome.Kind)
	s.Contains(outcome.Message, "decode response")
}

type panicDoc struct{}

func (panicDoc) IsQueryDocument() bool  { return true }
func (panicDoc) Text() (string, error) { panic("document vanished") }

func (s *UnitTestSuite) TestPanicIsRecovered() {
	outcome := s.orch.RunQuery(context.Background(), panicDoc{})
	s.Equal(types.OutcomeInternal, outcome.Kind)
	s.Equal("document vanished", outcome.Message)
}

func (s *UnitTestSuite) TestSchemaVersionRefreshesLanguageServer() {
	s.setResponse(reply(http.StatusOK, `{"data": "ok", "txn_ts": 2, "schema_version": 42}`))
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("Collection.create({ name: 'Cats' })"))
	s.True(outcome.OK())
	s.Equal("42", outcome.SchemaVersion)
	s.Equal([]string{"42"}, s.ls.refreshed)
	s.Empty(s.notifier.configErrors)
}

func (s *UnitTestSuite) TestSchemaRefreshFailureDoesNotFailQuery() {
	s.ls.err = types.Err(types.ErrCollaborator, errors.New("analyzer offline"), "")
	s.setResponse(reply(http.StatusOK, `{"data": "ok", "txn_ts": 2, "schema_version": 43}`))
	outcome := s.orch.RunQuery(context.Background(), fqlDoc("1"))
	s.True(outcome.OK())
	s.Equal("ok", outcome.Data)
	s.Len(s.notifier.configErrors, 1)
}

func (s *UnitTestSuite) TestConfigChangedSwapsClient() {
	before := s.orch.Client()
	s.orch.RunQuery(context.Background(), fqlDoc("1"))
	s.Equal(int64(100), before.LastTxnTime())

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer def", r.Header.Get("Authorization"))
		s.Equal("0", r.Header.Get("X-Last-Txn-Ts"))
		reply(http.StatusOK, `{"data": "from other", "txn_ts": 7}`)(w, r)
	}))
	defer other.Close()

	s.Require().NoError(s.orch.ConfigChanged(context.Background(), types.Configuration{Secret: "def", Endpoint: other.URL}))
	after := s.orch.Client()
	s.NotSame(before, after)
	s.Equal("def", after.Secret())

	outcome := s.orch.RunQuery(context.Background(), fqlDoc("1"))
	s.Equal("from other", outcome.Data)
	s.Len(s.requests(), 1)
	s.Equal(int64(7), after.LastTxnTime())
}

func (s *UnitTestSuite) TestConfigChangedRejectsInvalidEndpoint() {
	before := s.orch.Client()
	err := s.orch.ConfigChanged(context.Background(), types.Configuration{Secret: "def", Endpoint: "nope"})
	s.True(errors.Is(err, types.ErrConfiguration))
	s.Same(before, s.orch.Client())
}

// A query in flight keeps the client it started with.
func (s *UnitTestSuite) TestInFlightQueryKeepsCapturedClient() {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	s.setResponse(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		reply(http.StatusOK, `{"data": "slow", "txn_ts": 9}`)(w, r)
	})
	before := s.orch.Client()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.orch.RunQuery(context.Background(), fqlDoc("1"))
	}()
	<-started
	s.Require().NoError(s.orch.ConfigChanged(context.Background(), types.Configuration{Secret: "def", Endpoint: s.srv.URL}))
	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("query did not finish")
	}

	s.Equal("Bearer abc", s.requests()[0].auth)
	s.Equal(int64(9), before.LastTxnTime())
	s.Equal(int64(0), s.orch.Client().LastTxnTime())
}

func (s *UnitTestSuite) TestRoles() {
	s.setResponse(reply(http.StatusOK, `{"data": {"data": [{"name": "editor"}]}, "txn_ts": 3}`))
	roles, err := s.orch.Roles(context.Background())
	s.Require().NoError(err)
	s.Require().Len(roles, 3)
	s.Equal("admin", roles[0].Name)
	s.True(roles[0].Builtin)
	s.Equal("server", roles[1].Name)
	s.Equal(RoleChoice{Name: "editor"}, roles[2])

	// Cached.
	_, err = s.orch.Roles(context.Background())
	s.Require().NoError(err)
	s.Len(s.requests(), 1)

	// A config change drops the cache.
	s.Require().NoError(s.orch.ConfigChanged(context.Background(), types.Configuration{Secret: "def", Endpoint: s.srv.URL}))
	_, err = s.orch.Roles(context.Background())
	s.Require().NoError(err)
	s.Len(s.requests(), 2)
	s.Empty(s.notifier.warnings)
}

func (s *UnitTestSuite) TestRolesTruncatedWarns() {
	s.setResponse(reply(http.StatusOK, `{"data": {"data": [{"name": "r1"}], "after": "next"}, "txn_ts": 3}`))
	_, err := s.orch.Roles(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{TooManyRolesMessage}, s.notifier.warnings)
}

func (s *UnitTestSuite) TestRolesError() {
	s.setResponse(reply(http.StatusForbidden, `{"error": {"message": "Insufficient privileges"}}`))
	_, err := s.orch.Roles(context.Background())
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrProtocol))
}
