package provider

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role       Role       `json:"role"`
	Name       string     `json:"name,omitempty"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"arguments"`
}

// ToolDef is the function schema handed to the model.
type ToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// Request is one completion request. Seed is optional because not every
// backend supports deterministic sampling.
type Request struct {
	Messages    []Message
	Tools       []ToolDef
	Seed        *int
	Temperature float64
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Completion struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

type Provider interface {
	Complete(ctx context.Context, req Request) (Completion, error)
	Name() string
	ModelName() string
}
