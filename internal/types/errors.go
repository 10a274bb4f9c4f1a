package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is a user-actionable settings problem, e.g. a missing secret.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport means no HTTP response was received from the endpoint.
	ErrTransport = errors.New("transport error")
	// ErrProtocol is a non-2xx response reported by the server.
	ErrProtocol = errors.New("query failed")
	// ErrInput means there is no recognized query document to run.
	ErrInput = errors.New("no query document")
	// ErrCollaborator is an error reply from a downstream notification.
	ErrCollaborator = errors.New("collaborator error")

	ErrNotFound       = errors.New("not found")
	ErrInvalidBackend = errors.New("invalid backend")
	ErrSettingsAccess = errors.New("settings read/write error")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
