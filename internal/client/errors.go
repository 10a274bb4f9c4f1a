package client

import (
	"fmt"
	"fqlrun/internal/types"
)

const UnknownErrorMessage = "Unknown error"

// QueryError is a failure reported by the server with a non-2xx status.
type QueryError struct {
	Status  int
	Code    string
	Message string
	Summary string
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("query failed (%d): %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("query failed (%d): %s", e.Status, e.Message)
}

func (e *QueryError) Is(target error) bool { return target == types.ErrProtocol }

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() []error { return []error{types.ErrTransport, e.Err} }
