package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/types"
)

func TestAgent_ViewFromOwnPerspective(t *testing.T) {
	seed := 42
	prov := provider.NewScripted(provider.Text("ok"))
	defs := func() []provider.ToolDef { return []provider.ToolDef{{Name: "list_campaigns"}} }
	a := New(types.AgentSpec{Name: "planner", SystemPrompt: "plan things"}, prov, defs, Sampling{Seed: &seed, Temperature: 0.2}, nil)

	msg, err := a.Reply(context.Background(), sampleLog())
	require.NoError(t, err)
	assert.Equal(t, types.Message{Name: "planner", Role: types.RoleAgent, Content: "ok"}, msg)

	reqs := prov.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, &seed, req.Seed)
	assert.InDelta(t, 0.2, req.Temperature, 1e-9)
	require.Len(t, req.Tools, 1)

	roles := make([]provider.Role, 0, len(req.Messages))
	for _, m := range req.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []provider.Role{
		provider.RoleSystem,
		provider.RoleUser,
		provider.RoleAssistant,
		provider.RoleTool,
		provider.RoleAssistant,
	}, roles)
	assert.Equal(t, "client", req.Messages[1].Name)
	assert.Equal(t, "c1", req.Messages[2].ToolCalls[0].ID)
	assert.Equal(t, "c1", req.Messages[3].ToolCallID)
}

func TestAgent_ToolCallGetsID(t *testing.T) {
	prov := provider.NewScripted(provider.Completion{ToolCalls: []provider.ToolCall{
		{Name: "list_campaigns", Args: `{}`},
		{Name: "execute_query", Args: `{}`},
	}})
	a := New(types.AgentSpec{Name: "planner"}, prov, nil, Sampling{}, nil)

	msg, err := a.Reply(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, msg.IsFunctionCall())
	assert.Equal(t, "list_campaigns", msg.FunctionCall.Name)
	assert.True(t, strings.HasPrefix(msg.FunctionCall.ID, "call_"))
}
