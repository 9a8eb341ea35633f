package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFatal marks a non-retryable failure on a fallback backend.
	ErrFatal = errors.New("llm: fatal backend error")
	// ErrBackendsExhausted means every candidate backend failed the chunk.
	ErrBackendsExhausted = errors.New("llm: all backends exhausted")
	// ErrNoBackend is returned for a backend id no provider serves.
	ErrNoBackend = errors.New("llm: no provider for backend")
)

// StatusError carries the HTTP status a backend answered with.
type StatusError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Backend, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a gateway-class failure worth retrying
// on the same backend.
func IsTransient(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return isTransientStatus(se.StatusCode)
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeTransient
	outcomeFatal
)

// outcome is the tagged result of one backend call.
type outcome struct {
	kind outcomeKind
	text string
	err  error
}

func classify(text string, err error) outcome {
	switch {
	case err == nil:
		return outcome{kind: outcomeSuccess, text: text}
	case IsTransient(err):
		return outcome{kind: outcomeTransient, err: err}
	default:
		return outcome{kind: outcomeFatal, err: err}
	}
}
