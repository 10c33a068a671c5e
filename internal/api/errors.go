package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable covers transport failures, server errors and bodies that
	// cannot be decoded.
	ErrUnavailable = errors.New("likes API unavailable")
	// ErrRateLimited is returned once 429 retries are exhausted.
	ErrRateLimited = errors.New("likes API rate limit exceeded")
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("likes API rejected the API key")
)

// APIError is returned when the Likes API answers with an error status.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d) on %s: %s", e.StatusCode, e.Path, e.Message)
}

// Unwrap maps the status code onto one of the package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUnavailable
	}
}

// Outcome classifies the result of an API call for callers that degrade
// gracefully.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeUnavailable: network, server or decode failure. Callers fall back.
	OutcomeUnavailable
	// OutcomeRateLimited: retries exhausted on 429. Callers fall back.
	OutcomeRateLimited
	// OutcomeFailed: authentication failure or cancellation. Callers abort.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Degraded reports whether the caller should serve cached data instead.
func (o Outcome) Degraded() bool {
	return o == OutcomeUnavailable || o == OutcomeRateLimited
}

// Classify maps an error returned by this package onto an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, ErrUnauthorized):
		return OutcomeFailed
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeUnavailable
	}
}
