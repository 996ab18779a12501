package transport

import (
	"fmt"

	apperrors "authsecure/internal/errors"
)

// ErrorKind classifies why a request could not complete
type ErrorKind string

const (
	// KindNetwork covers connection, TLS, timeout and cancellation failures
	KindNetwork ErrorKind = "network"
	// KindStatus is a non-2xx HTTP response
	KindStatus ErrorKind = "status"
	// KindDecode is a body that is not a JSON object
	KindDecode ErrorKind = "decode"
)

// TransportError reports a request that never produced a usable server
// response. It is distinct from an application level rejection.
type TransportError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("transport %s error (HTTP %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("transport %s error: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is apperrors.ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == apperrors.ErrTransport
}

func wrapError(kind ErrorKind, status int, err error) *TransportError {
	return &TransportError{Kind: kind, Status: status, Err: err}
}
