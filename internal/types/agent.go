package types

import "context"

type Capability string

const (
	CapSpeak            Capability = "speak"
	CapExecuteFunctions Capability = "execute_functions"
	CapHumanProxy       Capability = "human_proxy"
)

// AgentSpec describes one participant of a team roster.
type AgentSpec struct {
	Name         string       `json:"name" yaml:"name"`
	SystemPrompt string       `json:"system_prompt" yaml:"system_prompt"`
	Capabilities []Capability `json:"capabilities" yaml:"capabilities"`
}

func (a AgentSpec) Can(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

type HumanInputMode string

const (
	HumanInputNever     HumanInputMode = "NEVER"
	HumanInputAlways    HumanInputMode = "ALWAYS"
	HumanInputTerminate HumanInputMode = "TERMINATE"
)

func (m HumanInputMode) Valid() bool {
	switch m {
	case HumanInputNever, HumanInputAlways, HumanInputTerminate:
		return true
	}
	return false
}

// TeamRole is the role description a caller supplies when creating a team.
type TeamRole struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ChildTeamRequest carries what a parent team supplies to spawn a child.
type ChildTeamRequest struct {
	ParentName string
	Task       string
	Roles      []TeamRole
	MaxRound   int
}

// TeamSpawner is implemented by team.Spawner and consumed by the
// create_team/answer_to_team tools, breaking the import cycle.
type TeamSpawner interface {
	CreateChild(ctx context.Context, req ChildTeamRequest) (name string, lastMessage string, err error)
	AnswerChild(ctx context.Context, parentName, childName, answer string) (lastMessage string, err error)
}
