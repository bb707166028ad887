package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/tools"
	"github.com/jeanpaul/adcrew/internal/types"
)

// HumanInput asks a person for the human proxy's next message. An empty
// answer means the person has nothing to add.
type HumanInput interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// HumanInputFunc adapts a function to HumanInput.
type HumanInputFunc func(ctx context.Context, prompt string) (string, error)

func (f HumanInputFunc) Ask(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

type StopReason int

const (
	StopTerminate StopReason = iota
	StopPause
	StopMaxRound
)

func (s StopReason) String() string {
	switch s {
	case StopTerminate:
		return "terminate"
	case StopPause:
		return "pause"
	default:
		return "max_round"
	}
}

// Outcome reports how one Run ended.
type Outcome struct {
	Rounds int
	Stop   StopReason
}

var ErrNoExecutor = errors.New("agent: roster has no function executor")

// GroupChat runs the turn loop of a team.
//
// Speaker selection: a function call is answered by the executor, a function
// result goes back to the caller, and speaking agents otherwise take turns
// round robin. The human proxy joins according to the input mode.
type GroupChat struct {
	speakers []Speaker
	executor string
	proxy    string
	tools    *tools.Registry
	maxRound int
	mode     types.HumanInputMode
	human    HumanInput
	log      *zap.Logger
}

type GroupChatConfig struct {
	Speakers []Speaker
	Roster   []types.AgentSpec
	Tools    *tools.Registry
	MaxRound int
	Mode     types.HumanInputMode
	Human    HumanInput
	Log      *zap.Logger
}

func NewGroupChat(cfg GroupChatConfig) (*GroupChat, error) {
	if cfg.MaxRound <= 0 {
		return nil, fmt.Errorf("agent: max_round must be positive, got %d", cfg.MaxRound)
	}
	if len(cfg.Speakers) == 0 {
		return nil, errors.New("agent: roster has no speaking agent")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = types.HumanInputNever
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("agent: invalid human input mode %q", mode)
	}
	gc := &GroupChat{
		speakers: cfg.Speakers,
		tools:    cfg.Tools,
		maxRound: cfg.MaxRound,
		mode:     mode,
		human:    cfg.Human,
		log:      cfg.Log,
	}
	if gc.log == nil {
		gc.log = zap.NewNop()
	}
	for _, spec := range cfg.Roster {
		if gc.executor == "" && spec.Can(types.CapExecuteFunctions) {
			gc.executor = spec.Name
		}
		if gc.proxy == "" && spec.Can(types.CapHumanProxy) {
			gc.proxy = spec.Name
		}
	}
	if gc.executor == "" {
		return nil, ErrNoExecutor
	}
	if gc.tools == nil {
		gc.tools = tools.NewRegistry()
	}
	if gc.human == nil || gc.proxy == "" {
		gc.mode = types.HumanInputNever
	}
	return gc, nil
}

func (gc *GroupChat) MaxRound() int { return gc.maxRound }

// Run takes at most MaxRound turns on conv. Each message is appended to the
// log before it is classified. A context cancellation stops the loop between
// turns.
func (gc *GroupChat) Run(ctx context.Context, conv *Conversation) (Outcome, error) {
	rounds := 0
	for rounds < gc.maxRound {
		if err := ctx.Err(); err != nil {
			return Outcome{Rounds: rounds}, err
		}
		msg, err := gc.next(ctx, conv.Messages())
		if err != nil {
			return Outcome{Rounds: rounds}, err
		}
		conv.Append(msg)
		rounds++
		gc.log.Debug("turn",
			zap.Int("round", rounds),
			zap.String("speaker", msg.Name),
			zap.Bool("function_call", msg.IsFunctionCall()))

		if msg.IsFunctionCall() || !types.IsTerminal(&msg) {
			continue
		}
		if types.IsPause(&msg) {
			return Outcome{Rounds: rounds, Stop: StopPause}, nil
		}
		if gc.mode != types.HumanInputTerminate || rounds >= gc.maxRound {
			return Outcome{Rounds: rounds, Stop: StopTerminate}, nil
		}
		reply, err := gc.askHuman(ctx, msg)
		if err != nil {
			return Outcome{Rounds: rounds}, err
		}
		if reply == nil {
			return Outcome{Rounds: rounds, Stop: StopTerminate}, nil
		}
		conv.Append(*reply)
		rounds++
	}
	return Outcome{Rounds: rounds, Stop: StopMaxRound}, nil
}

func (gc *GroupChat) next(ctx context.Context, history []types.Message) (types.Message, error) {
	if len(history) == 0 {
		return gc.speakers[0].Reply(ctx, history)
	}
	last := history[len(history)-1]

	if last.IsFunctionCall() {
		return gc.tools.Dispatch(ctx, gc.executor, tools.Invocation{
			CallID:  last.FunctionCall.ID,
			Name:    last.FunctionCall.Name,
			Args:    last.FunctionCall.Arguments,
			History: history[:len(history)-1],
		}), nil
	}

	if last.Role == types.RoleFunctionResult {
		if s := gc.caller(history, last.CallID); s != nil {
			return s.Reply(ctx, history)
		}
	}

	if gc.mode == types.HumanInputAlways && gc.isSpeaker(last.Name) {
		reply, err := gc.askHuman(ctx, last)
		if err != nil {
			return types.Message{}, err
		}
		if reply != nil {
			return *reply, nil
		}
	}
	return gc.roundRobin(history).Reply(ctx, history)
}

// askHuman returns nil when the person had nothing to say.
func (gc *GroupChat) askHuman(ctx context.Context, last types.Message) (*types.Message, error) {
	answer, err := gc.human.Ask(ctx, types.StripMarkers(last.Content))
	if err != nil {
		return nil, fmt.Errorf("agent: human input: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, nil
	}
	return &types.Message{Name: gc.proxy, Role: types.RoleAgent, Content: answer}, nil
}

// caller finds the speaker that issued the call answered by callID.
func (gc *GroupChat) caller(history []types.Message, callID string) Speaker {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.IsFunctionCall() && (callID == "" || m.FunctionCall.ID == callID) {
			return gc.speaker(m.Name)
		}
	}
	return nil
}

// roundRobin picks the agent after the last one that spoke in plain text.
// When someone outside the rotation spoke last (the task, the client, a
// function result), the last rotating speaker answers.
func (gc *GroupChat) roundRobin(history []types.Message) Speaker {
	lastIdx := len(history) - 1
	for i := lastIdx; i >= 0; i-- {
		m := history[i]
		idx := gc.index(m.Name)
		if idx < 0 {
			continue
		}
		if i == lastIdx && !m.IsFunctionCall() && m.Role == types.RoleAgent {
			return gc.speakers[(idx+1)%len(gc.speakers)]
		}
		return gc.speakers[idx]
	}
	return gc.speakers[0]
}

func (gc *GroupChat) index(name string) int {
	for i, s := range gc.speakers {
		if s.Spec().Name == name {
			return i
		}
	}
	return -1
}

func (gc *GroupChat) speaker(name string) Speaker {
	if i := gc.index(name); i >= 0 {
		return gc.speakers[i]
	}
	return nil
}

func (gc *GroupChat) isSpeaker(name string) bool { return gc.index(name) >= 0 }
