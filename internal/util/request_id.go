package util

import "github.com/google/uuid"

// NewRequestID returns a correlation ID attached to outbound requests so a
// failed call can be matched against the backend's logs.
func NewRequestID() string {
	return uuid.NewString()
}
