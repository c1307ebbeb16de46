package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Pipeline error taxonomy. Per-item failures (one URL, one provider call)
// are recovered locally and recorded; only NoURLsFound, or exhausting
// every retry with zero valid recipes and no fallback data, surfaces as a
// request-level failure.
var (
	// ErrProviderUnavailable covers breaker-open and network failures.
	// Cascaded past, never fatal to the whole request.
	ErrProviderUnavailable = eris.New("provider unavailable")
	// ErrExtractionTimeout is a per-URL timeout. Degrades the result set
	// and feeds the provider's breaker.
	ErrExtractionTimeout = eris.New("extraction timed out")
	// ErrNoURLsFound is terminal for the request unless fallback recipes
	// are used.
	ErrNoURLsFound = eris.New("no urls found")
	// ErrValidationFailed drops a single recipe from the accepted set.
	ErrValidationFailed = eris.New("recipe failed validation")
	// ErrParseFailure marks a malformed provider response; treated the
	// same as ErrProviderUnavailable for cascade purposes.
	ErrParseFailure = eris.New("malformed provider response")
)

// TransientError marks an error as safe to retry, optionally carrying the
// HTTP status that produced it.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err looks retryable: an explicit
// TransientError, a network timeout, a connection-level failure, or a
// known transient message from a wrapped HTTP client.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status code is worth
// retrying.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
