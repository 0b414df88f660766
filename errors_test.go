package realtime

import (
	"errors"
	"testing"
)

func TestNewErrorCarriesDefaultStatusCode(t *testing.T) {
	err := newError(ErrKindAuthFailure, "bad key")
	if err.StatusCode != 401 {
		t.Fatalf("expected default status 401 for AuthFailure, got %d", err.StatusCode)
	}
	if err.Kind != ErrKindAuthFailure {
		t.Fatalf("expected Kind AuthFailure")
	}
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := errors.New("dial failed")
	err := wrapError(ErrKindConnectionError, cause, "open transport")
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorInfoFromError(t *testing.T) {
	rtErr := newError(ErrKindProtocolViolation, "bad range")
	info := errorInfoFromError(rtErr)
	if info.StatusCode != rtErr.StatusCode || info.Message != rtErr.Message {
		t.Fatalf("unexpected ErrorInfo conversion: %+v", info)
	}

	plain := errors.New("some other failure")
	info = errorInfoFromError(plain)
	if info.Message != plain.Error() {
		t.Fatalf("expected the plain error's message carried through")
	}

	if errorInfoFromError(nil) != nil {
		t.Fatalf("expected nil in, nil out")
	}
}
