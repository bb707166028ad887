package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type AnthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewAnthropic(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicProvider{apiKey: apiKey, model: model, baseURL: "https://api.anthropic.com", client: &http.Client{}}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) ModelName() string { return a.model }

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []anthropicMsg  `json:"messages"`
	Tools       []anthropicTool `json:"tools,omitempty"`
	Temperature float64         `json:"temperature"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete ignores Request.Seed; the messages API has no seed parameter.
func (a *AnthropicProvider) Complete(ctx context.Context, r Request) (Completion, error) {
	var system []string
	var apiMsgs []anthropicMsg
	for _, m := range r.Messages {
		switch {
		case m.Role == RoleSystem:
			system = append(system, m.Content)
		case m.Role == RoleTool:
			apiMsgs = append(apiMsgs, anthropicMsg{
				Role: "user",
				Content: []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": m.ToolCallID,
					"content":     m.Content,
				}},
			})
		case m.Role == RoleAssistant && len(m.ToolCalls) > 0:
			var blocks []map[string]any
			if m.Content != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": m.Content})
			}
			for _, tc := range m.ToolCalls {
				var input any
				if err := json.Unmarshal([]byte(tc.Args), &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, map[string]any{"type": "tool_use", "id": tc.ID, "name": tc.Name, "input": input})
			}
			apiMsgs = append(apiMsgs, anthropicMsg{Role: "assistant", Content: blocks})
		default:
			content := m.Content
			if m.Name != "" && m.Role == RoleUser {
				content = m.Name + ": " + content
			}
			apiMsgs = append(apiMsgs, anthropicMsg{Role: string(m.Role), Content: content})
		}
	}

	body := anthropicRequest{
		Model:       a.model,
		MaxTokens:   8192,
		System:      strings.Join(system, "\n\n"),
		Messages:    apiMsgs,
		Temperature: r.Temperature,
	}
	for _, t := range r.Tools {
		body.Tools = append(body.Tools, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: %s", friendlyProviderError(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Completion{}, newStatusError("anthropic", resp.StatusCode, b)
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	var c Completion
	var text []string
	for _, block := range out.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			c.ToolCalls = append(c.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Args: string(block.Input)})
		}
	}
	c.Content = strings.Join(text, "")
	c.Usage = Usage{
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		TotalTokens:  out.Usage.InputTokens + out.Usage.OutputTokens,
	}
	return c, nil
}
