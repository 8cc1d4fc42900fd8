package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError represents a non-2xx HTTP response returned by the remote service.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	JSON       any
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("http error: status=%d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Message returns the server supplied "message" or "error" field of a JSON
// error body, if any.
func (e *HTTPError) Message() string {
	if e == nil {
		return ""
	}
	obj, ok := e.JSON.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// decodeJSONBody parses the body bytes into a generic JSON payload.
func decodeJSONBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}
