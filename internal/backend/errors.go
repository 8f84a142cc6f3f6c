package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ServerError is a non-2xx answer from the service.
type ServerError struct {
	Op         string
	StatusCode int
	// Message is the service's "error" field, empty if the body had none.
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func newServerError(op string, status int, body []byte) *ServerError {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	return &ServerError{
		Op:         op,
		StatusCode: status,
		Message:    strings.TrimSpace(payload.Error),
	}
}

// UserMessage returns the service-provided message carried by err, or fallback
// when err carries none (transport failures, empty bodies).
func UserMessage(err error, fallback string) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
