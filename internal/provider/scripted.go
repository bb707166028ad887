package provider

import (
	"context"
	"fmt"
	"sync"
)

// Scripted replays canned completions in order. It backs dry runs and the
// turn-loop tests, and records every request it receives.
type Scripted struct {
	mu       sync.Mutex
	replies  []Completion
	requests []Request
	// Fallback is returned once the script is exhausted. When nil an error is
	// returned instead.
	Fallback *Completion
}

func NewScripted(replies ...Completion) *Scripted {
	return &Scripted{replies: replies}
}

// Text is shorthand for a completion carrying only content.
func Text(content string) Completion {
	return Completion{Content: content}
}

// Call is shorthand for a completion carrying a single tool call.
func Call(id, name, args string) Completion {
	return Completion{ToolCalls: []ToolCall{{ID: id, Name: name, Args: args}}}
}

func (s *Scripted) Name() string      { return "scripted" }
func (s *Scripted) ModelName() string { return "scripted" }

func (s *Scripted) Complete(ctx context.Context, req Request) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		if s.Fallback != nil {
			return *s.Fallback, nil
		}
		return Completion{}, fmt.Errorf("scripted: no reply left for request %d", len(s.requests))
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next, nil
}

// Requests returns a copy of every request seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
