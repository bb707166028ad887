package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeanpaul/adcrew/internal/schema"
)

var defaultValidator = schema.NewValidator()

// Spec describes a typed command.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
	SideEffect  SideEffect
	Class       Class
	// Currency is set for monetary mutations; see Monetary.
	Currency *CurrencyFields
}

// Command is a tool whose arguments are decoded into A after schema
// validation. Each command owns exactly one validating deserializer, so a bad
// call surfaces as an ArgumentParseError instead of reaching the handler.
type Command[A any] struct {
	spec Spec
	run  func(ctx context.Context, inv Invocation, args A) (string, error)
}

func NewCommand[A any](spec Spec, run func(ctx context.Context, inv Invocation, args A) (string, error)) *Command[A] {
	if spec.Parameters == nil {
		spec.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &Command[A]{spec: spec, run: run}
}

func (c *Command[A]) Name() string           { return c.spec.Name }
func (c *Command[A]) Description() string    { return c.spec.Description }
func (c *Command[A]) Parameters() any        { return c.spec.Parameters }
func (c *Command[A]) SideEffect() SideEffect { return c.spec.SideEffect }
func (c *Command[A]) Class() Class           { return c.spec.Class }

// CurrencyFields satisfies Monetary; only commands built with Spec.Currency
// are treated as monetary by the registry.
func (c *Command[A]) CurrencyFields() CurrencyFields {
	if c.spec.Currency == nil {
		return CurrencyFields{}
	}
	return *c.spec.Currency
}

func (c *Command[A]) Execute(ctx context.Context, inv Invocation) (Result, error) {
	args, err := Decode[A](c.spec.Name, c.spec.Parameters, inv.Args)
	if err != nil {
		return Result{}, err
	}
	out, err := c.run(ctx, inv, args)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: out}, nil
}

// Decode repairs string-encoded collections, validates raw against the
// schema and unmarshals it into A.
func Decode[A any](function string, parameters any, raw string) (A, error) {
	var args A
	fixed, err := schema.CoerceCollections(parameters, raw)
	if err != nil {
		return args, &ArgumentParseError{Function: function, Err: err}
	}
	if err := defaultValidator.Validate(parameters, fixed); err != nil {
		return args, &ArgumentParseError{Function: function, Err: err}
	}
	if err := json.Unmarshal([]byte(fixed), &args); err != nil {
		return args, &ArgumentParseError{Function: function, Err: fmt.Errorf("decode: %w", err)}
	}
	return args, nil
}

func isMonetary(t Tool) (CurrencyFields, bool) {
	m, ok := t.(Monetary)
	if !ok {
		return CurrencyFields{}, false
	}
	f := m.CurrencyFields()
	return f, f.CustomerID != "" && f.Currency != ""
}
