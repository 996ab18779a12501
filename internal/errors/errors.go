package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// UnknownErrorMessage is reported when the server rejects a request without a message
const UnknownErrorMessage = "Unknown error"

// Sentinel errors shared by the client, transport and stub server
var (
	ErrTransport            = errors.New("transport error")
	ErrInitializationFailed = errors.New("initialization failed")
	ErrOperationRejected    = errors.New("operation rejected")
	ErrNotInitialized       = errors.New("client not initialized")
	ErrAlreadyInitialized   = errors.New("client already initialized")
	ErrInvalidRequest       = errors.New("invalid request")
)

// Kind classifies an OperationError
type Kind string

const (
	KindInitializationFailed Kind = "initialization_failed"
	KindRejected             Kind = "rejected"
	KindInvalidRequest       Kind = "invalid_request"
)

// OperationError describes a failed protocol operation.
// Message carries the human readable text reported by the server.
type OperationError struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "operation error"
	}
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause
func (e *OperationError) Unwrap() error { return e.Err }

// Is maps the error kind onto the package sentinels
func (e *OperationError) Is(target error) bool {
	switch e.Kind {
	case KindInitializationFailed:
		return target == ErrInitializationFailed
	case KindRejected:
		return target == ErrOperationRejected
	case KindInvalidRequest:
		return target == ErrInvalidRequest
	}
	return false
}

// NewInitializationFailed creates the error returned when the server refuses a session
func NewInitializationFailed(message string) *OperationError {
	return &OperationError{Op: "init", Kind: KindInitializationFailed, Message: MessageOrUnknown(message)}
}

// NewRejected creates the error returned when the server refuses a user operation
func NewRejected(op, message string) *OperationError {
	return &OperationError{Op: op, Kind: KindRejected, Message: MessageOrUnknown(message)}
}

// NewInvalidRequest wraps a local validation failure
func NewInvalidRequest(op string, err error) *OperationError {
	return &OperationError{Op: op, Kind: KindInvalidRequest, Err: err}
}

// MessageOrUnknown substitutes UnknownErrorMessage for an empty server message
func MessageOrUnknown(message string) string {
	if message == "" {
		return UnknownErrorMessage
	}
	return message
}

// ServerMessage extracts the server supplied message from err, if any
func ServerMessage(err error) (string, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Kind != KindInvalidRequest {
		return opErr.Message, true
	}
	return "", false
}

// FailureResponse is the wire envelope for a rejected request
type FailureResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	HTTPStatusCode int    `json:"-"`
}

// Render implements the render.Renderer interface
func (f *FailureResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if f.HTTPStatusCode != 0 {
		render.Status(r, f.HTTPStatusCode)
	}
	return nil
}

// Failure creates a failure envelope answered with HTTP 200, the way the vendor backend does
func Failure(message string) *FailureResponse {
	return &FailureResponse{Success: false, Message: message}
}

// FailureWithStatus creates a failure envelope with an explicit HTTP status
func FailureWithStatus(status int, message string) *FailureResponse {
	return &FailureResponse{Success: false, Message: message, HTTPStatusCode: status}
}

// Predefined failures used by the stub backend
var (
	ErrRateLimitExceeded = FailureWithStatus(http.StatusTooManyRequests, "Rate limit exceeded")
	ErrMethodNotAllowed  = FailureWithStatus(http.StatusMethodNotAllowed, "Method not allowed")
)
