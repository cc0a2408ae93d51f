package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrShape reports a response body that is not the expected array/object.
var ErrShape = errors.New("unexpected response shape")

// TransportError is a network failure or a non-2xx response.
// Message is taken verbatim from the body's "message" or "error" field when
// the backend sends one.
type TransportError struct {
	Op      string
	Status  int // 0 for network failures
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage returns the text shown in alert-style reporting: the backend's
// own message when present, otherwise the error string.
func UserMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// bodyMessage extracts a "message" or "error" string from a JSON error body.
// Non-JSON bodies are returned trimmed, capped at 200 bytes.
func bodyMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
