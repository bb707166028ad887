package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeanpaul/adcrew/internal/types"
)

// Hierarchical team tools. A parent agent delegates a sub-task to a child
// team and relays the child's questions back through answer_to_team.

var errNoSpawner = errors.New("team spawning is not available in this team")

type createTeamArgs struct {
	Task     string           `json:"task"`
	Roles    []types.TeamRole `json:"roles"`
	MaxRound int              `json:"max_round,omitempty"`
}

type answerTeamArgs struct {
	TeamName string `json:"team_name"`
	Answer   string `json:"answer"`
}

// NewCreateTeamTool returns create_team bound to parent.
func NewCreateTeamTool(spawner types.TeamSpawner, parent string) Tool {
	return NewCommand(Spec{
		Name: "create_team",
		Description: "Create a team of specialised agents that works on a sub-task. " +
			"Returns the team's last message. If that message is a question, answer it with answer_to_team.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{
					"type":        "string",
					"description": "What the new team must accomplish, with all the context it needs.",
				},
				"roles": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":        map[string]any{"type": "string"},
							"description": map[string]any{"type": "string"},
						},
						"required": []string{"name", "description"},
					},
					"description": "Agents of the team.",
				},
				"max_round": map[string]any{
					"type":    "integer",
					"minimum": 1,
				},
			},
			"required": []string{"task", "roles"},
		},
	}, func(ctx context.Context, _ Invocation, args createTeamArgs) (string, error) {
		if spawner == nil {
			return "", errNoSpawner
		}
		name, last, err := spawner.CreateChild(ctx, types.ChildTeamRequest{
			ParentName: parent,
			Task:       args.Task,
			Roles:      args.Roles,
			MaxRound:   args.MaxRound,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Team %s replied:\n%s", name, last), nil
	})
}

// NewAnswerTeamTool returns answer_to_team for the team named parent. Only
// teams that parent created can be answered.
func NewAnswerTeamTool(spawner types.TeamSpawner, parent string) Tool {
	return NewCommand(Spec{
		Name:        "answer_to_team",
		Description: "Answer the pending question of a team created with create_team and let it continue.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"team_name": map[string]any{"type": "string"},
				"answer":    map[string]any{"type": "string"},
			},
			"required": []string{"team_name", "answer"},
		},
	}, func(ctx context.Context, _ Invocation, args answerTeamArgs) (string, error) {
		if spawner == nil {
			return "", errNoSpawner
		}
		last, err := spawner.AnswerChild(ctx, parent, args.TeamName, args.Answer)
		if err != nil {
			return "", err
		}
		return last, nil
	})
}
