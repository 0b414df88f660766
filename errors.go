package realtime

import "fmt"

// ErrorKind enumerates the error taxonomy from spec.md §7.
type ErrorKind int

const (
	ErrKindInvalidArgument ErrorKind = iota
	ErrKindInvalidStateTransition
	ErrKindConnectionError
	ErrKindAuthFailure
	ErrKindServerError
	ErrKindProtocolViolation
	ErrKindConnectionReset
	ErrKindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindInvalidArgument:
		return "InvalidArgument"
	case ErrKindInvalidStateTransition:
		return "InvalidStateTransition"
	case ErrKindConnectionError:
		return "ConnectionError"
	case ErrKindAuthFailure:
		return "AuthFailure"
	case ErrKindServerError:
		return "ServerError"
	case ErrKindProtocolViolation:
		return "ProtocolViolation"
	case ErrKindConnectionReset:
		return "ConnectionReset"
	case ErrKindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// defaultStatusCode mirrors the original client's practice of pairing
// every error kind with an HTTP-like status, for callers that bucket
// errors by status rather than kind. See SPEC_FULL.md §7.
func (k ErrorKind) defaultStatusCode() int {
	switch k {
	case ErrKindInvalidArgument:
		return 400
	case ErrKindInvalidStateTransition:
		return 409
	case ErrKindConnectionError:
		return 503
	case ErrKindAuthFailure:
		return 401
	case ErrKindServerError:
		return 500
	case ErrKindProtocolViolation:
		return 400
	case ErrKindConnectionReset:
		return 409
	case ErrKindTimeout:
		return 408
	default:
		return 500
	}
}

// Error is the concrete error type produced throughout this module.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: kind.defaultStatusCode(),
		Message:    fmt.Sprintf(format, args...),
	}
}

func wrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// errorInfoFromError converts an internal *Error into the wire ErrorInfo
// shape for attaching to outgoing Nack/Error frames in tests and fakes.
func errorInfoFromError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return &ErrorInfo{Code: int(e.Kind), StatusCode: e.StatusCode, Message: e.Message}
	}
	return &ErrorInfo{Message: err.Error()}
}
