package oddsapi

import (
	"fmt"
)

// AuthError indicates the API rejected the key (HTTP 401/403).
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("odds api rejected credentials (status %d)", e.StatusCode)
}

// QuotaError indicates the usage cap was hit (HTTP 429).
type QuotaError struct {
	Remaining string
}

func (e *QuotaError) Error() string {
	if e.Remaining != "" {
		return fmt.Sprintf("odds api quota exceeded (remaining %s)", e.Remaining)
	}
	return "odds api quota exceeded"
}

// NetworkError wraps transport level failures, including timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("odds api request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError covers unexpected HTTP statuses outside the taxonomy above.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("odds api returned status %d: %s", e.StatusCode, e.Body)
}
