package team

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/agent"
	"github.com/jeanpaul/adcrew/internal/tools"
	"github.com/jeanpaul/adcrew/internal/types"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateAwaitingReply
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrTeamBusy        = errors.New("team: a turn loop is already running")
	ErrNotPaused       = errors.New("team: not awaiting a reply")
	ErrAlreadyStarted  = errors.New("team: chat already initiated")
	ErrPendingQuestion = errors.New("team: previous question is still unanswered")
	ErrNotChild        = errors.New("team: not a child of the asking team")
)

// QAEntry is one question a team asked while paused, with its answer once
// it arrives.
type QAEntry struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}

// Team is a named group of agents sharing one conversation and dispatch
// table. At most one turn loop runs on a team at a time.
type Team struct {
	name    string
	task    string
	roster  []types.AgentSpec
	tools   *tools.Registry
	chat    *agent.GroupChat
	conv    *agent.Conversation
	workDir string
	depth   int
	log     *zap.Logger

	mu       sync.Mutex
	state    State
	lastStop agent.StopReason
	qa       []QAEntry
}

func (t *Team) Name() string                      { return t.name }
func (t *Team) Task() string                      { return t.task }
func (t *Team) Depth() int                        { return t.depth }
func (t *Team) Roster() []types.AgentSpec         { return append([]types.AgentSpec(nil), t.roster...) }
func (t *Team) Tools() *tools.Registry            { return t.tools }
func (t *Team) Conversation() *agent.Conversation { return t.conv }
func (t *Team) MaxRound() int                     { return t.chat.MaxRound() }
func (t *Team) Messages() []types.Message         { return t.conv.Messages() }

func (t *Team) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastStop reports why the latest turn loop ended.
func (t *Team) LastStop() agent.StopReason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastStop
}

func (t *Team) QALog() []QAEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]QAEntry, len(t.qa))
	copy(out, t.qa)
	return out
}

// InitiateChat posts the task and runs the turn loop until a terminal
// message or max_round.
func (t *Team) InitiateChat(ctx context.Context) (agent.Outcome, error) {
	t.mu.Lock()
	switch t.state {
	case StateIdle:
	case StateRunning:
		t.mu.Unlock()
		return agent.Outcome{}, ErrTeamBusy
	default:
		t.mu.Unlock()
		return agent.Outcome{}, ErrAlreadyStarted
	}
	t.state = StateRunning
	t.mu.Unlock()

	t.conv.Append(types.Message{Name: ClientName, Role: types.RoleAgent, Content: t.task})
	return t.run(ctx)
}

// ContinueChat appends an external message, answers the pending question if
// there is one and resumes the loop. Only a team awaiting a reply accepts it.
func (t *Team) ContinueChat(ctx context.Context, message string) (agent.Outcome, error) {
	t.mu.Lock()
	switch t.state {
	case StateAwaitingReply:
	case StateRunning:
		t.mu.Unlock()
		return agent.Outcome{}, ErrTeamBusy
	default:
		t.mu.Unlock()
		return agent.Outcome{}, fmt.Errorf("%w: team %s is %s", ErrNotPaused, t.name, t.state)
	}
	t.state = StateRunning
	t.answerLocked(message)
	t.mu.Unlock()

	t.conv.Append(types.Message{Name: ClientName, Role: types.RoleAgent, Content: message})
	return t.run(ctx)
}

// AsyncResult is delivered once by InitiateChatAsync.
type AsyncResult struct {
	Outcome agent.Outcome
	Err     error
}

// InitiateChatAsync runs InitiateChat in its own goroutine. The returned
// channel receives exactly one result and is then closed.
func (t *Team) InitiateChatAsync(ctx context.Context) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		out, err := t.InitiateChat(ctx)
		ch <- AsyncResult{Outcome: out, Err: err}
	}()
	return ch
}

// LastMessage returns the newest message with every pause and terminate
// marker removed, prefixed with the team name when withName is set.
func (t *Team) LastMessage(withName bool) string {
	last, ok := t.conv.Last(0)
	if !ok {
		return ""
	}
	content := types.StripMarkers(last.Content)
	if withName {
		return t.name + ": " + content
	}
	return content
}

func (t *Team) run(ctx context.Context) (agent.Outcome, error) {
	out, err := t.chat.Run(ctx, t.conv)

	t.mu.Lock()
	switch {
	case err != nil:
		// The log keeps what was said so far; the team can be resumed.
		t.state = StateAwaitingReply
		t.lastStop = agent.StopMaxRound
	case out.Stop == agent.StopTerminate:
		t.state = StateCompleted
		t.lastStop = out.Stop
	case out.Stop == agent.StopPause:
		t.state = StateAwaitingReply
		t.lastStop = out.Stop
		if qerr := t.askLocked(t.LastMessage(false)); qerr != nil {
			t.log.Warn("question not recorded", zap.String("team", t.name), zap.Error(qerr))
		}
	default:
		t.state = StateAwaitingReply
		t.lastStop = out.Stop
	}
	state := t.state
	t.mu.Unlock()

	t.log.Info("turn loop finished",
		zap.String("team", t.name),
		zap.Int("rounds", out.Rounds),
		zap.Stringer("stop", out.Stop),
		zap.Stringer("state", state),
		zap.Error(err))
	t.persist()
	return out, err
}

func (t *Team) persist() {
	if t.workDir == "" {
		return
	}
	if _, err := t.conv.Save(t.workDir, t.name); err != nil {
		t.log.Warn("save conversation", zap.String("team", t.name), zap.Error(err))
	}
}

// askLocked records a new unanswered question.
func (t *Team) askLocked(question string) error {
	if n := len(t.qa); n > 0 && t.qa[n-1].Answer == nil {
		return ErrPendingQuestion
	}
	t.qa = append(t.qa, QAEntry{Question: question})
	return nil
}

// answerLocked answers the pending question. Without one it does nothing.
func (t *Team) answerLocked(answer string) {
	n := len(t.qa)
	if n == 0 || t.qa[n-1].Answer != nil {
		return
	}
	a := answer
	t.qa[n-1].Answer = &a
}
