package tools

import (
	"context"
	"strings"

	"github.com/jeanpaul/adcrew/internal/types"
)

type replyArgs struct {
	Message string `json:"message"`
}

// NewReplyToClientTool returns reply_to_client. Its result ends with the
// pause marker, so the team stops and waits for the client's answer.
func NewReplyToClientTool() Tool {
	return NewCommand(Spec{
		Name:        "reply_to_client",
		Description: "Send a message or question to the client and wait for the answer.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Text shown to the client.",
				},
			},
			"required": []string{"message"},
		},
	}, func(_ context.Context, _ Invocation, args replyArgs) (string, error) {
		return strings.TrimSpace(types.StripMarkers(args.Message)) + " " + types.MarkerPause, nil
	})
}
