package types

// OutcomeKind classifies how a query invocation ended.
type OutcomeKind int

const (
	OutcomeSuccess   OutcomeKind = iota
	OutcomeProtocol              // server answered with a non-2xx status
	OutcomeTransport             // no HTTP response at all
	OutcomeInput                 // no recognized query document
	OutcomeInternal              // anything else, stringified
)

var OutcomeText = map[OutcomeKind]string{
	OutcomeSuccess:   "success",
	OutcomeProtocol:  "protocol_error",
	OutcomeTransport: "transport_error",
	OutcomeInput:     "input_error",
	OutcomeInternal:  "internal_error",
}

// Outcome is the normalized result of one query invocation, as handed to the
// rendering surface.
type Outcome struct {
	Kind OutcomeKind `json:"-"`

	// Success
	Data          any    `json:"data,omitempty"`
	StaticType    string `json:"static_type,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`

	// Failure
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	Summary string `json:"summary,omitempty"`
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }
