package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/types"
)

// Speaker produces the next message of a conversation on behalf of one
// roster entry.
type Speaker interface {
	Spec() types.AgentSpec
	Reply(ctx context.Context, history []types.Message) (types.Message, error)
}

// Sampling carries the model knobs shared by a team.
type Sampling struct {
	Seed        *int
	Temperature float64
}

// Agent is a model-backed speaker.
type Agent struct {
	spec     types.AgentSpec
	prov     provider.Provider
	tools    func() []provider.ToolDef
	sampling Sampling
	log      *zap.Logger
}

// New builds a model-backed agent. tools is consulted on every turn so the
// agent always sees the current dispatch table.
func New(spec types.AgentSpec, prov provider.Provider, tools func() []provider.ToolDef, sampling Sampling, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{spec: spec, prov: prov, tools: tools, sampling: sampling, log: log}
}

func (a *Agent) Spec() types.AgentSpec { return a.spec }

func (a *Agent) Reply(ctx context.Context, history []types.Message) (types.Message, error) {
	req := provider.Request{
		Messages:    a.view(history),
		Seed:        a.sampling.Seed,
		Temperature: a.sampling.Temperature,
	}
	if a.tools != nil {
		req.Tools = a.tools()
	}

	comp, err := a.prov.Complete(ctx, req)
	if err != nil {
		return types.Message{}, fmt.Errorf("agent %s: %w", a.spec.Name, err)
	}
	a.log.Debug("completion",
		zap.String("agent", a.spec.Name),
		zap.Int("tool_calls", len(comp.ToolCalls)),
		zap.Int("total_tokens", comp.Usage.TotalTokens))

	msg := types.Message{Name: a.spec.Name, Role: types.RoleAgent, Content: comp.Content}
	if len(comp.ToolCalls) > 0 {
		// Only the first call is kept so every call in the log is followed by
		// exactly one result. The model re-issues the rest if it still needs them.
		tc := comp.ToolCalls[0]
		if len(comp.ToolCalls) > 1 {
			a.log.Warn("dropping extra tool calls",
				zap.String("agent", a.spec.Name),
				zap.Int("dropped", len(comp.ToolCalls)-1))
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		msg.FunctionCall = &types.FunctionCall{ID: id, Name: tc.Name, Arguments: tc.Args}
	}
	return msg, nil
}

// view renders the shared log from this agent's point of view: its own turns
// are assistant turns, everyone else speaks as a named user.
func (a *Agent) view(history []types.Message) []provider.Message {
	out := make([]provider.Message, 0, len(history)+1)
	if a.spec.SystemPrompt != "" {
		out = append(out, provider.Message{Role: provider.RoleSystem, Content: a.spec.SystemPrompt})
	}
	for _, m := range history {
		switch {
		case m.IsFunctionCall():
			out = append(out, provider.Message{
				Role:    provider.RoleAssistant,
				Name:    m.Name,
				Content: m.Content,
				ToolCalls: []provider.ToolCall{{
					ID:   m.FunctionCall.ID,
					Name: m.FunctionCall.Name,
					Args: m.FunctionCall.Arguments,
				}},
			})
		case m.Role == types.RoleFunctionResult:
			out = append(out, provider.Message{Role: provider.RoleTool, Content: m.Content, ToolCallID: m.CallID})
		case m.Name == a.spec.Name:
			out = append(out, provider.Message{Role: provider.RoleAssistant, Content: m.Content})
		default:
			out = append(out, provider.Message{Role: provider.RoleUser, Name: m.Name, Content: m.Content})
		}
	}
	return out
}
