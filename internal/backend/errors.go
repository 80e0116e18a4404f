package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusError is returned for every non-2xx backend response.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *StatusError) StatusCode() int { return e.Status }

// Detail is the human readable text the backend attached to the failure, if any.
func (e *StatusError) Detail() string { return e.Message }

// detailFromBody pulls detail|message|error out of a JSON error body, falling back to the raw text.
func detailFromBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return text
	}
	for _, key := range []string{"detail", "message", "error"} {
		switch v := decoded[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}
