package team

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/types"
)

var _ types.TeamSpawner = (*Factory)(nil)

// CreateChild builds a team for a parent's sub-task, registers it as
// {parent}_child_{n} and drives it to its first stop. The child's last
// message, prefixed with its name, is what the parent gets back.
func (f *Factory) CreateChild(ctx context.Context, req types.ChildTeamRequest) (string, string, error) {
	parent, err := f.store.Get(req.ParentName)
	if err != nil {
		return "", "", err
	}
	if parent.Depth() >= f.maxDepth {
		return "", "", fmt.Errorf("team %s: maximum nesting depth %d reached", parent.Name(), f.maxDepth)
	}

	var child *Team
	for {
		name := Name(parent.Name(), "child", f.nextChild(parent.Name()))
		child, err = f.Create(ctx, CreateParams{
			Name:           name,
			Task:           req.Task,
			Roles:          req.Roles,
			MaxRound:       req.MaxRound,
			HumanInputMode: types.HumanInputNever,
			WorkDir:        parent.workDir,
			depth:          parent.Depth() + 1,
		})
		if !errors.Is(err, ErrDuplicateName) {
			break
		}
	}
	if err != nil {
		return "", "", err
	}
	f.adopt(parent.Name(), child.Name())

	f.log.Info("child team spawned", zap.String("parent", parent.Name()), zap.String("child", child.Name()))
	if _, err := child.InitiateChat(ctx); err != nil {
		return child.Name(), "", fmt.Errorf("child team %s: %w", child.Name(), err)
	}
	last := child.LastMessage(true)
	f.releaseIfDone(child)
	return child.Name(), last, nil
}

// AnswerChild forwards a parent's answer to a paused child and resumes it.
// Teams the parent did not spawn are refused with ErrNotChild.
func (f *Factory) AnswerChild(ctx context.Context, parent, name, answer string) (string, error) {
	if !f.isChild(parent, name) {
		return "", fmt.Errorf("%w: %s is not a team created by %s", ErrNotChild, name, parent)
	}
	child, err := f.store.Get(name)
	if err != nil {
		return "", err
	}
	if _, err := child.ContinueChat(ctx, answer); err != nil {
		return "", fmt.Errorf("child team %s: %w", name, err)
	}
	last := child.LastMessage(true)
	f.releaseIfDone(child)
	return last, nil
}

func (f *Factory) nextChild(parent string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[parent]++
	return f.children[parent]
}

func (f *Factory) adopt(parent, child string) {
	f.mu.Lock()
	f.parents[child] = parent
	f.mu.Unlock()
}

func (f *Factory) isChild(parent, child string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parents[child]
	return ok && p == parent
}

// releaseIfDone drops a completed child from the store; nobody can talk to
// it anymore.
func (f *Factory) releaseIfDone(child *Team) {
	if child.State() != StateCompleted {
		return
	}
	f.store.Pop(child.Name())
	f.mu.Lock()
	delete(f.parents, child.Name())
	f.mu.Unlock()
}
