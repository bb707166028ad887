package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusError is returned when a provider answers with a non-200 status.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

func newStatusError(providerName string, statusCode int, body []byte) *StatusError {
	return &StatusError{
		Provider:   providerName,
		StatusCode: statusCode,
		Message:    parseProviderError(statusCode, body),
	}
}

// parseProviderError extracts a human-readable error from provider API responses.
func parseProviderError(statusCode int, body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		msg := errResp.Error.Message
		if msg == "" {
			msg = errResp.Message
		}
		if msg != "" {
			return msg
		}
	}

	switch statusCode {
	case 401:
		return "authentication failed, check your API key"
	case 403:
		return "access denied, the API key may lack the required permissions"
	case 404:
		return "model or endpoint not found"
	case 429:
		return "rate limited, too many requests"
	case 500:
		return "internal server error on the provider side"
	case 502, 503:
		return "provider service temporarily unavailable"
	case 529:
		return "provider is overloaded"
	}

	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// friendlyProviderError converts common network errors to readable messages.
func friendlyProviderError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the service running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check the URL)"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "connection timed out"
	case strings.Contains(msg, "EOF"):
		return "connection closed unexpectedly"
	case strings.Contains(msg, "reset by peer"):
		return "connection reset by server"
	}
	return msg
}
