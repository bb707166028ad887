// Package notify delivers daily reports: a webhook opens a chat for the
// report and a notification points the client at it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/types"
)

// ExternalServiceError is a non-200 answer or transport failure.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ChatRequest is the webhook payload.
type ChatRequest struct {
	UserID               string          `json:"userId"`
	Messages             []types.Message `json:"messages"`
	InitialMessageInChat string          `json:"initial_message_in_chat"`
	ProposedUserAction   string          `json:"proposed_user_action"`
}

// ChatOpener obtains a routable chat id for a report.
type ChatOpener interface {
	OpenChat(ctx context.Context, req ChatRequest) (string, error)
}

// Sender delivers a notification and returns the provider's response id.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: 30 * time.Second}}
}

func (w *Webhook) OpenChat(ctx context.Context, req ChatRequest) (string, error) {
	var resp struct {
		ChatID any `json:"chatID"`
	}
	if err := postJSON(ctx, w.client, "webhook", w.url, "", req, &resp); err != nil {
		return "", err
	}
	id := formatID(resp.ChatID)
	if id == "" {
		return "", &ExternalServiceError{Service: "webhook", Err: fmt.Errorf("response has no chatID")}
	}
	return id, nil
}

// HTTPSender posts notifications to a messaging API.
type HTTPSender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewHTTPSender(baseURL, apiKey, from string) *HTTPSender {
	return &HTTPSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *HTTPSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	var resp struct {
		ID any `json:"id"`
	}
	req := sendRequest{From: s.from, To: to, Subject: subject, Body: body}
	if err := postJSON(ctx, s.client, "notification", s.baseURL+"/v1/messages", s.apiKey, req, &resp); err != nil {
		return "", err
	}
	return formatID(resp.ID), nil
}

// LogSender writes notifications to the log instead of sending them.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) Send(_ context.Context, to, subject, body string) (string, error) {
	l.Log.Info("notification", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return "logged", nil
}

func postJSON(ctx context.Context, client *http.Client, service, url, token string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return &ExternalServiceError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ExternalServiceError{Service: service, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300] + "..."
		}
		return &ExternalServiceError{Service: service, StatusCode: resp.StatusCode, Message: msg}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExternalServiceError{Service: service, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
