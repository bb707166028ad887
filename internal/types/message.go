package types

import "strings"

type Role string

const (
	RoleAgent          Role = "agent"
	RoleFunctionResult Role = "function_result"
)

// Termination markers. The marker must be the last whitespace-separated
// token of a message for it to count.
const (
	MarkerTerminate = "TERMINATE"
	MarkerPause     = "PAUSE"
)

type FunctionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Message struct {
	Name         string        `json:"name"`
	Role         Role          `json:"role"`
	Content      string        `json:"content,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	// CallID links a function result to the call that produced it.
	CallID string `json:"call_id,omitempty"`
	// Failed marks a function result produced by a dispatch error.
	Failed bool `json:"failed,omitempty"`
}

// IsFunctionCall reports whether the message asks for a function to run.
func (m Message) IsFunctionCall() bool {
	return m.FunctionCall != nil && m.FunctionCall.Name != ""
}

func lastToken(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// IsTerminal reports whether msg ends the current turn loop, either for good
// (TERMINATE) or until an external answer arrives (PAUSE).
func IsTerminal(msg *Message) bool {
	if msg == nil {
		return false
	}
	tok := lastToken(msg.Content)
	return strings.Contains(tok, MarkerTerminate) || strings.Contains(tok, MarkerPause)
}

// IsPause reports whether msg is a soft stop awaiting an external answer.
func IsPause(msg *Message) bool {
	if msg == nil {
		return false
	}
	tok := lastToken(msg.Content)
	return strings.Contains(tok, MarkerPause) && !strings.Contains(tok, MarkerTerminate)
}

// StripMarkers removes every occurrence of both markers. Removal is repeated
// until stable so that overlapping text such as "PAPAUSEUSE" cannot leave a
// marker behind.
func StripMarkers(content string) string {
	for {
		next := strings.ReplaceAll(content, MarkerTerminate, "")
		next = strings.ReplaceAll(next, MarkerPause, "")
		if next == content {
			return strings.TrimSpace(next)
		}
		content = next
	}
}
