package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeanpaul/adcrew/internal/types"
)

const (
	ApprovalFlagField    = "client_approved_modification"
	ApprovalMessageField = "clients_approval_message"
	// DefaultApprover is the speaker whose messages count as approval when
	// the registry is not told otherwise.
	DefaultApprover = "client"
)

// Refusal texts returned by the approval gate. They are plain results, not
// errors, so the conversation continues and the agent can go ask the client.
const (
	RefusalNotApproved = "The client has not approved this modification. Describe the change to the client, ask for explicit approval and retry with client_approved_modification set to true."
	RefusalNoEvidence  = "The approval message %q does not appear in the conversation. Quote the client's approval exactly as it was written and retry."
)

// approvalGate wraps a mutating tool so it only runs when the call carries
// the approval flag and the quoted approval text was said earlier in the
// conversation by one of the approvers. Agents never approve their own
// proposals.
type approvalGate struct {
	Tool
	approvers map[string]bool
}

func requireApproval(t Tool, approvers []string) Tool {
	g := &approvalGate{Tool: t, approvers: make(map[string]bool, len(approvers))}
	for _, a := range approvers {
		g.approvers[a] = true
	}
	return g
}

func (g *approvalGate) Unwrap() Tool { return g.Tool }

func (g *approvalGate) Parameters() any {
	params := cloneSchema(g.Tool.Parameters())
	props, _ := params["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	props[ApprovalFlagField] = map[string]any{
		"type":        "boolean",
		"description": "True only if the client explicitly approved this exact modification.",
	}
	props[ApprovalMessageField] = map[string]any{
		"type":        "string",
		"description": "The client's approval message, quoted exactly.",
	}
	params["properties"] = props

	required := []string{ApprovalFlagField, ApprovalMessageField}
	switch have := params["required"].(type) {
	case []string:
		required = append(append([]string{}, have...), required...)
	case []any:
		for _, r := range have {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}
	params["required"] = required
	return params
}

func (g *approvalGate) Execute(ctx context.Context, inv Invocation) (Result, error) {
	var claim struct {
		Approved *bool  `json:"client_approved_modification"`
		Message  string `json:"clients_approval_message"`
	}
	fixed := inv.Args
	if strings.TrimSpace(fixed) == "" {
		fixed = "{}"
	}
	if err := json.Unmarshal([]byte(fixed), &claim); err != nil {
		return Result{}, &ArgumentParseError{Function: g.Name(), Err: err}
	}
	if claim.Approved == nil || !*claim.Approved {
		return Result{Output: RefusalNotApproved}, nil
	}
	if !g.approvedIn(claim.Message, inv.History) {
		return Result{Output: fmt.Sprintf(RefusalNoEvidence, claim.Message)}, nil
	}
	return g.Tool.Execute(ctx, inv)
}

func (g *approvalGate) approvedIn(approval string, history []types.Message) bool {
	want := normalize(approval)
	if want == "" {
		return false
	}
	for _, m := range history {
		if m.Role != types.RoleAgent || m.IsFunctionCall() || !g.approvers[m.Name] {
			continue
		}
		if strings.Contains(normalize(m.Content), want) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cloneSchema(params any) map[string]any {
	out := map[string]any{}
	b, err := json.Marshal(params)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}
