package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type mutateRequest struct {
	Resource any      `json:"resource"`
	Approval Approval `json:"approval"`
}

type mutateResponse struct {
	ResourceName string `json:"resource_name"`
}

func (c *Client) Mutate(ctx context.Context, endpoint string, resource any, approval Approval) (string, error) {
	var resp mutateResponse
	path := "/v1/" + strings.TrimLeft(endpoint, "/") + ":mutate"
	if err := c.post(ctx, "mutate", path, mutateRequest{Resource: resource, Approval: approval}, &resp); err != nil {
		return "", err
	}
	if resp.ResourceName == "" {
		return "", &ExternalServiceError{Op: "mutate", Message: "response has no resource_name"}
	}
	return resp.ResourceName, nil
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Rows []Row `json:"rows"`
}

func (c *Client) Query(ctx context.Context, customerID, query string) ([]Row, error) {
	var resp queryResponse
	path := "/v1/customers/" + url.PathEscape(customerID) + "/search"
	if err := c.post(ctx, "query", path, queryRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) Currency(ctx context.Context, customerID string) (string, error) {
	rows, err := c.Query(ctx, customerID, currencyQuery)
	if err != nil {
		return "", err
	}
	return currencyFromRows(customerID, rows)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &ExternalServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &ExternalServiceError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &ExternalServiceError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExternalServiceError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
