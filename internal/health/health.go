// Package health checks that the services a deployment depends on answer.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status struct {
	Name      string
	URL       string
	Reachable bool
	Models    []string
	Error     string
	Latency   time.Duration
}

// Target is one service to probe.
type Target struct {
	Name string
	// Kind is a provider type (openai, anthropic, google) or "http" for a
	// plain endpoint where any non-auth, non-5xx answer counts as reachable.
	Kind   string
	URL    string
	APIKey string
}

const checkTimeout = 10 * time.Second

// CheckAll probes every target concurrently. Results keep the target order.
func CheckAll(ctx context.Context, client *http.Client, targets []Target) []Status {
	out := make([]Status, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			out[i] = Check(ctx, client, t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func Check(ctx context.Context, client *http.Client, t Target) Status {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	var s Status
	switch t.Kind {
	case "openai":
		s = checkOpenAICompat(ctx, client, t.URL, t.APIKey)
	case "anthropic":
		s = checkAnthropic(ctx, client, t.URL, t.APIKey)
	case "google":
		s = checkGoogle(ctx, client, t.URL, t.APIKey)
	case "http":
		s = checkEndpoint(ctx, client, t.URL, t.APIKey)
	default:
		s.Error = fmt.Sprintf("unknown kind: %s", t.Kind)
	}
	s.Name = t.Name
	s.URL = t.URL
	s.Latency = time.Since(start)
	return s
}

func checkOpenAICompat(ctx context.Context, client *http.Client, baseURL, apiKey string) Status {
	var s Status
	resp, err := get(ctx, client, strings.TrimRight(baseURL, "/")+"/models", func(r *http.Request) {
		if apiKey != "" {
			r.Header.Set("Authorization", "Bearer "+apiKey)
		}
	})
	if err != nil {
		s.Error = err.Error()
		return s
	}
	defer resp.Body.Close()

	if msg := statusProblem(resp.StatusCode); msg != "" {
		s.Error = msg
		return s
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	s.Reachable = true
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return s
	}
	for _, m := range result.Data {
		s.Models = append(s.Models, m.ID)
	}
	return s
}

func checkAnthropic(ctx context.Context, client *http.Client, baseURL, apiKey string) Status {
	var s Status
	if apiKey == "" {
		s.Error = "no API key configured (set ANTHROPIC_API_KEY)"
		return s
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	resp, err := get(ctx, client, strings.TrimRight(baseURL, "/")+"/v1/models", func(r *http.Request) {
		r.Header.Set("x-api-key", apiKey)
		r.Header.Set("anthropic-version", "2023-06-01")
	})
	if err != nil {
		s.Error = err.Error()
		return s
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		s.Error = "invalid API key"
		return s
	}
	s.Reachable = true
	return s
}

func checkGoogle(ctx context.Context, client *http.Client, baseURL, apiKey string) Status {
	var s Status
	if apiKey == "" {
		s.Error = "no API key configured (set GEMINI_API_KEY)"
		return s
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	url := fmt.Sprintf("%s/v1beta/models?key=%s&pageSize=1", strings.TrimRight(baseURL, "/"), apiKey)
	resp, err := get(ctx, client, url, nil)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.Error = "invalid API key"
		return s
	}
	s.Reachable = true
	return s
}

// checkEndpoint only proves the host answers; webhooks and mutate APIs
// commonly reject GET with 404 or 405.
func checkEndpoint(ctx context.Context, client *http.Client, url, token string) Status {
	var s Status
	if url == "" {
		s.Error = "not configured"
		return s
	}
	resp, err := get(ctx, client, url, func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	})
	if err != nil {
		s.Error = err.Error()
		return s
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.Error = "authentication failed, check the token"
	case resp.StatusCode >= 500:
		s.Error = fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode)
	default:
		s.Reachable = true
	}
	return s
}

func get(ctx context.Context, client *http.Client, url string, decorate func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if decorate != nil {
		decorate(req)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach %s: %s", req.URL.Host, friendlyError(err))
	}
	return resp, nil
}

func statusProblem(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "authentication failed, check your API key"
	case code != http.StatusOK:
		return fmt.Sprintf("endpoint returned HTTP %d", code)
	}
	return ""
}

// CheckModel reports an error when an OpenAI-compatible endpoint lists its
// models and modelName is not among them.
func CheckModel(s Status, modelName string) error {
	if !s.Reachable {
		return fmt.Errorf("provider not reachable: %s", s.Error)
	}
	if len(s.Models) == 0 || modelName == "" {
		return nil
	}
	for _, m := range s.Models {
		if m == modelName {
			return nil
		}
	}
	return fmt.Errorf("model %q not found, available: %s", modelName, strings.Join(s.Models, ", "))
}

func friendlyError(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "connection refused") {
		return "connection refused (is the service running?)"
	}
	if strings.Contains(msg, "no such host") {
		return "host not found (check the URL)"
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return "connection timed out"
	}
	return msg
}
