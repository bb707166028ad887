package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeanpaul/adcrew/internal/types"
)

// Conversation is the append-only message log of one team.
type Conversation struct {
	mu       sync.RWMutex
	messages []types.Message
}

func NewConversation(initial ...types.Message) *Conversation {
	return &Conversation{messages: append([]types.Message(nil), initial...)}
}

func (c *Conversation) Append(msgs ...types.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msgs...)
	c.mu.Unlock()
}

// Messages returns a snapshot of the log.
func (c *Conversation) Messages() []types.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the n-th message from the end, Last(0) being the newest.
func (c *Conversation) Last(n int) (types.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := len(c.messages) - 1 - n
	if n < 0 || i < 0 {
		return types.Message{}, false
	}
	return c.messages[i], true
}

// Save writes the log as JSON to dir/name.json and returns the path.
func (c *Conversation) Save(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("agent: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".json")
	data, err := json.MarshalIndent(c.Messages(), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

// Export writes a human-readable transcript.
func (c *Conversation) Export(path, title string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	for _, m := range c.Messages() {
		switch {
		case m.IsFunctionCall():
			fmt.Fprintf(&sb, "## %s calls %s\n```json\n%s\n```\n\n", m.Name, m.FunctionCall.Name, m.FunctionCall.Arguments)
		case m.Role == types.RoleFunctionResult:
			fmt.Fprintf(&sb, "## Result (%s)\n%s\n\n", m.Name, m.Content)
		default:
			fmt.Fprintf(&sb, "## %s\n%s\n\n", m.Name, m.Content)
		}
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func LoadConversation(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs []types.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("agent: decode %s: %w", path, err)
	}
	return NewConversation(msgs...), nil
}
