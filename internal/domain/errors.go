package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals an invalid field or index definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrUnsupportedMode signals an operation the current cluster topology cannot perform.
	ErrUnsupportedMode = errors.New("operation not supported in this cluster mode")
	// ErrTopology signals that the cluster mode could not be determined.
	ErrTopology = errors.New("cluster mode detection failed")
	// ErrEngineUnavailable signals that the search engine could not be contacted properly.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrCreateFailed signals a failed index creation.
	ErrCreateFailed = errors.New("index creation failed")
	// ErrDeleteFailed signals a failed index removal.
	ErrDeleteFailed = errors.New("index removal failed")
	// ErrInvalidRequest signals malformed input outside of schemas.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPayloadTooLarge signals an upload above the configured limit.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Error is the single user-facing failure kind returned by the index coordinator.
// Message is safe to show, Detail carries the underlying cause text.
type Error struct {
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error. kind classifies it for errors.Is, cause supplies Detail.
func NewError(kind error, cause error, format string, args ...any) *Error {
	e := &Error{Message: fmt.Sprintf(format, args...), Err: kind}
	if cause != nil {
		e.Detail = cause.Error()
		if kind != nil {
			e.Err = errors.Join(kind, cause)
		} else {
			e.Err = cause
		}
	}
	return e
}

// AsError returns err as *Error, wrapping unknown errors under kind.
func AsError(err error, kind error, msg string) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return NewError(kind, err, "%s", msg)
}
