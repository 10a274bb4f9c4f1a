package pub

import (
	"context"
	"errors"
	"fqlrun/internal/types"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

type fakeSNS struct {
	mu    sync.Mutex
	calls []*sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

type PubTestSuite struct {
	suite.Suite

	sns *fakeSNS
	b   *Broadcaster
}

const testTopic = "arn:aws:sns:us-east-1:000000000000:fql-events"

func TestPubTestSuite(t *testing.T) {
	suite.Run(t, new(PubTestSuite))
}

func (s *PubTestSuite) SetupTest() {
	s.sns = &fakeSNS{}
	s.b = NewBroadcaster(NewSNS(s.sns), testTopic)
}

func (s *PubTestSuite) decode(i int) Event {
	var ev Event
	s.Require().NoError(json.Unmarshal([]byte(*s.sns.calls[i].Message), &ev))
	return ev
}

func (s *PubTestSuite) TestConfigChangedNeverPublishesSecret() {
	cfg := types.Configuration{Secret: "fnSuperSecret", Endpoint: "https://db.example.com"}
	s.Require().NoError(s.b.ConfigChanged(context.Background(), cfg))

	s.Require().Len(s.sns.calls, 1)
	in := s.sns.calls[0]
	s.Equal(testTopic, *in.TopicArn)
	s.NotContains(*in.Message, "fnSuperSecret")
	s.Equal(EventConfigChanged, *in.MessageAttributes["event-type"].StringValue)

	ev := s.decode(0)
	s.Equal(EventConfigChanged, ev.Type)
	s.Equal("https://db.example.com", ev.Endpoint)
	s.Equal(types.Fingerprint("fnSuperSecret"), ev.SecretFingerprint)
	s.NotEmpty(ev.ID)
	s.NotZero(ev.At)
}

func (s *PubTestSuite) TestRefreshSchemaCarriesLastEndpoint() {
	s.Require().NoError(s.b.SetConfig(context.Background(), types.Configuration{Secret: "x", Endpoint: "https://a"}))
	s.Require().NoError(s.b.RefreshSchema(context.Background(), "42"))
	ev := s.decode(1)
	s.Equal(EventSchemaChanged, ev.Type)
	s.Equal("42", ev.SchemaVersion)
	s.Equal("https://a", ev.Endpoint)
	s.NotEqual(s.decode(0).ID, ev.ID)
}

func (s *PubTestSuite) TestPublishErrorIsCollaboratorError() {
	s.sns.err = errors.New("throttled")
	err := s.b.RefreshSchema(context.Background(), "1")
	s.True(errors.Is(err, types.ErrCollaborator))
}

func (s *PubTestSuite) TestFingerprint() {
	s.Equal("", types.Fingerprint(""))
	s.Len(types.Fingerprint("abc"), 16)
	s.Equal(types.Fingerprint("abc"), types.Fingerprint("abc"))
	s.NotEqual(types.Fingerprint("abc"), types.Fingerprint("abd"))
}
