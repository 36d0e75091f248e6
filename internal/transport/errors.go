package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCredential is returned by a credential source when nothing is stored.
// The credential middleware treats it as "send unauthenticated".
var ErrNoCredential = errors.New("no credential stored")

// HTTPError is returned by Client.Do for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Unauthorized reports whether the server rejected the credential.
func (e *HTTPError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// newHTTPError extracts the server message from the usual error members.
func newHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: status,
		Message:    serverMessage(body),
		Body:       body,
	}
}

func serverMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"errorMessage", "message", "error"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
