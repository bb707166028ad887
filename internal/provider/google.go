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

type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGoogle(apiKey, model string) *GoogleProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com",
		client:  &http.Client{},
	}
}

func (g *GoogleProvider) Name() string { return "google" }

func (g *GoogleProvider) ModelName() string { return g.model }

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Tools             []geminiTool    `json:"tools,omitempty"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
	Seed        *int    `json:"seed,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string        `json:"text,omitempty"`
	FunctionCall     *geminiFnCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFnResp `json:"functionResponse,omitempty"`
}

type geminiFnCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFnResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFnDecl `json:"functionDeclarations"`
}

type geminiFnDecl struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

func (g *GoogleProvider) Complete(ctx context.Context, r Request) (Completion, error) {
	var contents []geminiContent
	var sys []geminiPart
	callNames := map[string]string{}

	for _, m := range r.Messages {
		switch m.Role {
		case RoleSystem:
			sys = append(sys, geminiPart{Text: m.Content})
		case RoleUser:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		case RoleAssistant:
			var parts []geminiPart
			if m.Content != "" {
				parts = append(parts, geminiPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Args), &args)
				callNames[tc.ID] = tc.Name
				parts = append(parts, geminiPart{FunctionCall: &geminiFnCall{Name: tc.Name, Args: args}})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})
		case RoleTool:
			name := callNames[m.ToolCallID]
			if name == "" {
				name = "tool"
			}
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFnResp{
					Name:     name,
					Response: map[string]any{"result": m.Content},
				}}},
			})
		}
	}

	body := geminiRequest{
		Contents:         contents,
		GenerationConfig: geminiGenConfig{Temperature: r.Temperature, Seed: r.Seed},
	}
	if len(sys) > 0 {
		body.SystemInstruction = &geminiContent{Parts: sys}
	}
	if len(r.Tools) > 0 {
		var decls []geminiFnDecl
		for _, t := range r.Tools {
			decls = append(decls, geminiFnDecl{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		}
		body.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Completion{}, err
	}

	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("google: %s", friendlyProviderError(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Completion{}, newStatusError("google", resp.StatusCode, b)
	}

	var out struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, fmt.Errorf("google: decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return Completion{}, fmt.Errorf("google: no candidates")
	}

	var c Completion
	var text []string
	for i, part := range out.Candidates[0].Content.Parts {
		if part.Text != "" {
			text = append(text, part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			c.ToolCalls = append(c.ToolCalls, ToolCall{
				ID:   fmt.Sprintf("%s-%d", part.FunctionCall.Name, i),
				Name: part.FunctionCall.Name,
				Args: string(args),
			})
		}
	}
	c.Content = strings.Join(text, "")
	c.Usage = Usage{
		InputTokens:  out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  out.UsageMetadata.TotalTokenCount,
	}
	return c, nil
}
