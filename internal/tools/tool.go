package tools

import (
	"context"

	"github.com/jeanpaul/adcrew/internal/types"
)

type SideEffect int

const (
	ReadOnly SideEffect = iota
	// MutatingGated tools change external resources and only run behind the
	// approval gate.
	MutatingGated
)

func (s SideEffect) String() string {
	if s == MutatingGated {
		return "mutating_gated"
	}
	return "read_only"
}

type Class int

const (
	ClassStandard Class = iota
	// ClassNotification marks tools whose call closes a reporting
	// conversation, such as the daily report sender.
	ClassNotification
)

// Invocation is one function call issued by an agent, together with the
// conversation it was issued in.
type Invocation struct {
	CallID  string
	Name    string
	Args    string
	History []types.Message
}

type Result struct {
	Output string
	Error  string
}

type Tool interface {
	Name() string
	Description() string
	Parameters() any
	Execute(ctx context.Context, inv Invocation) (Result, error)
	SideEffect() SideEffect
}

// Classified is implemented by tools outside ClassStandard.
type Classified interface {
	Class() Class
}

// Monetary is implemented by mutating tools that take a money amount. The
// registry puts them behind the currency guard.
type Monetary interface {
	CurrencyFields() CurrencyFields
}

// CurrencyFields names the argument keys holding the account and the
// currency the caller believes the amount is in.
type CurrencyFields struct {
	CustomerID string
	Currency   string
}

func ClassOf(t Tool) Class {
	if c, ok := t.(Classified); ok {
		return c.Class()
	}
	return ClassStandard
}
