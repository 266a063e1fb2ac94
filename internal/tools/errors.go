package tools

import "fmt"

// APIError is a typed remote-API failure carrying the HTTP status and the
// service's message. The dispatcher normalizes it into an error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API Error (%d): %s", e.Status, e.Message)
}
