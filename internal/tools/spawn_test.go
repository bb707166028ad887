package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/adcrew/internal/types"
)

type mockSpawner struct {
	captured   types.ChildTeamRequest
	answers    map[string]string
	answeredBy string
	err        error
}

func (m *mockSpawner) CreateChild(_ context.Context, req types.ChildTeamRequest) (string, string, error) {
	m.captured = req
	if m.err != nil {
		return "", "", m.err
	}
	return req.ParentName + "_child_1", req.ParentName + "_child_1: which account?", nil
}

func (m *mockSpawner) AnswerChild(_ context.Context, parent, name, answer string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.answeredBy = parent
	if m.answers == nil {
		m.answers = map[string]string{}
	}
	m.answers[name] = answer
	return name + ": done", nil
}

func TestCreateTeamTool(t *testing.T) {
	spawner := &mockSpawner{}
	r := NewRegistry()
	r.MustRegister(NewCreateTeamTool(spawner, "team_1_1"), NewAnswerTeamTool(spawner, "team_1_1"))

	msg := r.Dispatch(context.Background(), "executor", Invocation{
		Name: "create_team",
		Args: `{"task":"audit keywords","roles":"[{\"name\":\"analyst\",\"description\":\"reads reports\"}]"}`,
	})
	require.False(t, msg.Failed, msg.Content)
	assert.Contains(t, msg.Content, "team_1_1_child_1: which account?")
	assert.Equal(t, "team_1_1", spawner.captured.ParentName)
	assert.Equal(t, "audit keywords", spawner.captured.Task)
	assert.Equal(t, []types.TeamRole{{Name: "analyst", Description: "reads reports"}}, spawner.captured.Roles)

	msg = r.Dispatch(context.Background(), "executor", Invocation{
		Name: "answer_to_team",
		Args: `{"team_name":"team_1_1_child_1","answer":"account 7"}`,
	})
	require.False(t, msg.Failed)
	assert.Equal(t, "team_1_1_child_1: done", msg.Content)
	assert.Equal(t, "account 7", spawner.answers["team_1_1_child_1"])
	assert.Equal(t, "team_1_1", spawner.answeredBy)
}

func TestCreateTeamTool_Errors(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewCreateTeamTool(&mockSpawner{err: errors.New("unknown team")}, "p"), NewAnswerTeamTool(nil, "p"))

	msg := r.Dispatch(context.Background(), "executor", Invocation{Name: "create_team", Args: `{"task":"x","roles":[]}`})
	assert.True(t, msg.Failed, "empty roles violate minItems")

	msg = r.Dispatch(context.Background(), "executor", Invocation{Name: "create_team", Args: `{"task":"x","roles":[{"name":"a","description":"b"}]}`})
	assert.True(t, msg.Failed)
	assert.Contains(t, msg.Content, "unknown team")

	msg = r.Dispatch(context.Background(), "executor", Invocation{Name: "answer_to_team", Args: `{"team_name":"p","answer":"a"}`})
	assert.True(t, msg.Failed)
	assert.Contains(t, msg.Content, "not available")
}
