package team

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/agent"
	"github.com/jeanpaul/adcrew/internal/types"
)

var ErrCompleted = errors.New("team: conversation already completed")

// SavedPath is where a team named name persists its log under workDir.
func SavedPath(workDir, name string) string {
	return filepath.Join(workDir, name+".json")
}

// Restore rebuilds a team from the log an earlier process saved under
// work_dir and registers it awaiting a reply. A log that ended with a
// terminate marker is refused with ErrCompleted. A missing log yields an
// error matching fs.ErrNotExist.
func (f *Factory) Restore(ctx context.Context, params CreateParams) (*Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := f.withDefaults(params)
	if p.WorkDir == "" {
		return nil, fmt.Errorf("team %s: no work_dir to restore from", p.Name)
	}
	conv, err := agent.LoadConversation(SavedPath(p.WorkDir, p.Name))
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", p.Name, err)
	}
	first, ok := conv.Last(conv.Len() - 1)
	if !ok {
		return nil, fmt.Errorf("team %s: saved conversation is empty", p.Name)
	}
	last, _ := conv.Last(0)
	if types.IsTerminal(&last) && !types.IsPause(&last) && !last.IsFunctionCall() {
		return nil, fmt.Errorf("%w: %s", ErrCompleted, p.Name)
	}
	if p.Task == "" {
		p.Task = first.Content
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	t, err := f.build(p)
	if err != nil {
		return nil, err
	}
	t.conv = conv
	t.state = StateAwaitingReply
	t.lastStop = agent.StopMaxRound
	if types.IsPause(&last) {
		t.lastStop = agent.StopPause
		t.qa = []QAEntry{{Question: types.StripMarkers(last.Content)}}
	}
	if err := f.store.Store(t.name, t); err != nil {
		return nil, err
	}
	f.log.Info("team restored",
		zap.String("team", t.name),
		zap.Int("messages", conv.Len()),
		zap.Stringer("stop", t.lastStop))
	return t, nil
}
