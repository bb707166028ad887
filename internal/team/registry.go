package team

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicateName = errors.New("team: name already registered")
	ErrUnknownTeam   = errors.New("team: unknown team")
)

// Store holds the live teams of a process, keyed by name.
type Store interface {
	Store(name string, t *Team) error
	Get(name string) (*Team, error)
	// Pop removes and returns the team. It never fails.
	Pop(name string) (*Team, bool)
}

// Registry is the in-memory Store. Teams stay resident until popped.
type Registry struct {
	mu    sync.RWMutex
	teams map[string]*Team
}

func NewRegistry() *Registry {
	return &Registry{teams: make(map[string]*Team)}
}

func (r *Registry) Store(name string, t *Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.teams[name] = t
	return nil
}

func (r *Registry) Get(name string) (*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, name)
	}
	return t, nil
}

func (r *Registry) Pop(name string) (*Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[name]
	if ok {
		delete(r.teams, name)
	}
	return t, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}

// Names lists the registered teams in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.teams))
	for n := range r.teams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Name builds the registry key {prefix}_{userID}_{convID}.
func Name(prefix string, userID, convID any) string {
	return fmt.Sprintf("%s_%v_%v", prefix, userID, convID)
}
