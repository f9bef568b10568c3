package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches APIErrors with a 404 status.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the backend.  Message is the
// server-provided explanation, empty when the body carried none.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ServerMessage extracts the backend's message from err, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
