// Package apperr defines the error taxonomy shared by all services and the
// single place where error kinds map to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindBadInput
	KindPermissionDenied
	KindUpstream
	KindExecution
	KindConfig
)

// Error carries a kind alongside a human-readable message. Upstream errors
// additionally record the status and body returned by the remote service.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int
	UpstreamBody   string
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Upstream records a non-success response from a remote service, preserving
// its status and body verbatim.
func Upstream(status int, body string, format string, args ...any) *Error {
	return &Error{
		Kind:           KindUpstream,
		Message:        fmt.Sprintf(format, args...),
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

// KindOf extracts the kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Status maps an error to the HTTP status surfaced to callers. Upstream
// errors propagate the remote status when one was recorded.
func Status(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadInput:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindUpstream:
		if appErr.UpstreamStatus > 0 {
			return appErr.UpstreamStatus
		}
		return http.StatusBadGateway
	case KindExecution:
		return http.StatusInternalServerError
	case KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
