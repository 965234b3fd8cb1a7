package taiga

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard client error types callers can match with errors.Is.
var (
	// ErrAuthFailed indicates the session token exchange or a
	// token-authenticated request was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrVersionConflict indicates an optimistic-concurrency update was
	// rejected because another writer landed first.
	ErrVersionConflict = errors.New("version conflict")

	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("not found")
)

// APIError wraps an unexpected tracker response with request context.
type APIError struct {
	Op         string // Operation being performed (e.g., "UpdateTaskStatus")
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
	}

	return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
}

// Is maps response codes onto the standard error types.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrVersionConflict:
		return e.StatusCode == http.StatusConflict
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrAuthFailed:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}

	return false
}

// IsVersionConflict checks if an error indicates a rejected versioned update.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
