package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeanpaul/adcrew/internal/tools"
	"github.com/jeanpaul/adcrew/internal/types"
)

const ReportToolName = "send_report"

// Report is the payload of the closing send_report call.
type Report struct {
	Narrative          string `json:"narrative"`
	ProposedUserAction string `json:"proposed_user_action"`
}

// NewReportTool returns send_report. The call itself only acknowledges;
// delivery happens once the conversation is over and validated.
func NewReportTool() tools.Tool {
	return tools.NewCommand(tools.Spec{
		Name: ReportToolName,
		Description: "Send the daily report to the client. Call it exactly once, as the very last step, " +
			"when the analysis is complete.",
		Class: tools.ClassNotification,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"narrative": map[string]any{
					"type":        "string",
					"minLength":   1,
					"description": "What happened in the account, written for the client.",
				},
				"proposed_user_action": map[string]any{
					"type":        "string",
					"description": "The one change you recommend the client approves.",
				},
			},
			"required": []string{"narrative", "proposed_user_action"},
		},
	}, func(context.Context, tools.Invocation, Report) (string, error) {
		return "Report queued for delivery. " + types.MarkerTerminate, nil
	})
}

var errNoNotification = errors.New("conversation did not end with a notification call")

// extractReport enforces the closing contract of a daily conversation: the
// second-to-last message is a successful call to a notification-class tool.
func extractReport(msgs []types.Message, table *tools.Registry) (Report, error) {
	if len(msgs) < 2 {
		return Report{}, errNoNotification
	}
	call, result := msgs[len(msgs)-2], msgs[len(msgs)-1]
	if !call.IsFunctionCall() || !table.IsNotification(call.FunctionCall.Name) {
		return Report{}, errNoNotification
	}
	if result.Role != types.RoleFunctionResult || result.Failed {
		return Report{}, fmt.Errorf("%w: %s failed: %s", errNoNotification, call.FunctionCall.Name, result.Content)
	}
	var r Report
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &r); err != nil {
		return Report{}, fmt.Errorf("decode %s payload: %w", call.FunctionCall.Name, err)
	}
	if strings.TrimSpace(r.Narrative) == "" {
		return Report{}, fmt.Errorf("%s payload has no narrative", call.FunctionCall.Name)
	}
	return r, nil
}
