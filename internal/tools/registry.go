package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/types"
)

// Registry is the function dispatch table of one team. Lookup is by exact
// name; tools keep their registration order in the schema handed to models.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	order     []string
	lookup    CurrencyLookup
	approvers []string
	log       *zap.Logger
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithCurrencyLookup enables registration of monetary tools.
func WithCurrencyLookup(l CurrencyLookup) Option {
	return func(r *Registry) { r.lookup = l }
}

// WithApprovers names the speakers whose messages count as approval for
// gated tools. It replaces DefaultApprover.
func WithApprovers(names ...string) Option {
	return func(r *Registry) { r.approvers = append([]string(nil), names...) }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:     make(map[string]Tool),
		approvers: []string{DefaultApprover},
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds t to the table. Mutating tools are wrapped by the approval
// gate, monetary ones additionally by the currency guard.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("%w: tool has no name", ErrInvalidRegistration)
	}
	wrapped := t
	if fields, ok := isMonetary(t); ok {
		if r.lookup == nil {
			return fmt.Errorf("%w: %s is monetary but no currency lookup is configured", ErrInvalidRegistration, t.Name())
		}
		wrapped = guardCurrency(wrapped, fields, r.lookup)
	}
	if t.SideEffect() == MutatingGated {
		wrapped = requireApproval(wrapped, r.approvers)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[t.Name()]; dup {
		return fmt.Errorf("%w: %s registered twice", ErrInvalidRegistration, t.Name())
	}
	r.tools[t.Name()] = wrapped
	r.order = append(r.order, t.Name())
	return nil
}

// MustRegister registers every tool and panics on the first failure. It is
// meant for static wiring at startup.
func (r *Registry) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IsNotification reports whether name is a registered notification-class tool.
func (r *Registry) IsNotification(name string) bool {
	t, ok := r.Get(name)
	if !ok {
		return false
	}
	return ClassOf(unwrap(t)) == ClassNotification
}

func (r *Registry) ToolDefs() []provider.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]provider.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, provider.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute runs one invocation. Panics inside handlers come back as a
// HandlerError; every other failure is returned as the tool produced it.
func (r *Registry) Execute(ctx context.Context, inv Invocation) (res Result, err error) {
	t, ok := r.Get(inv.Name)
	if !ok {
		return Result{}, &UnknownFunctionError{Name: inv.Name, Suggestion: suggest(inv.Name, r.Names())}
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("tool panicked",
				zap.String("function", inv.Name),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			res, err = Result{}, &HandlerError{Function: inv.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return t.Execute(ctx, inv)
}

// Dispatch executes inv and renders the outcome as the function result
// message spoken by executor. It never fails: errors become message text
// with Failed set, so the conversation keeps going.
func (r *Registry) Dispatch(ctx context.Context, executor string, inv Invocation) types.Message {
	res, err := r.Execute(ctx, inv)
	msg := types.Message{
		Name:   executor,
		Role:   types.RoleFunctionResult,
		CallID: inv.CallID,
	}
	switch {
	case err != nil:
		r.log.Warn("function call failed",
			zap.String("function", inv.Name),
			zap.Bool("recoverable", Recoverable(err)),
			zap.Error(err))
		msg.Content = "Error: " + err.Error()
		msg.Failed = true
	case res.Error != "":
		msg.Content = "Error: " + res.Error
		msg.Failed = true
	default:
		r.log.Debug("function call succeeded", zap.String("function", inv.Name))
		msg.Content = res.Output
	}
	return msg
}

type unwrapper interface {
	Unwrap() Tool
}

func unwrap(t Tool) Tool {
	for {
		u, ok := t.(unwrapper)
		if !ok {
			return t
		}
		t = u.Unwrap()
	}
}
