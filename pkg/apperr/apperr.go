// Package apperr defines the application error taxonomy.
//
// Every failure surfaced to a client carries a stable machine-readable
// Kind plus a human-readable message. Handlers map kinds to HTTP status
// codes in pkg/httputil.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error category
type Kind string

const (
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindMissingCredential   Kind = "missing_credential"
	KindProfileFetchFailed  Kind = "profile_fetch_failed"
	KindMissingExternalID   Kind = "missing_external_id"
	KindProvisioningError   Kind = "provisioning_error"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindValidationError     Kind = "validation_error"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// Error is an application error with a stable kind and optional cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an application error with the given kind and message
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an application error wrapping an underlying cause
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain; unknown errors are internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf extracts the client-facing message from an error chain
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
