package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CurrencyLookup resolves the ground-truth currency of an account through a
// read-only query.
type CurrencyLookup interface {
	Currency(ctx context.Context, customerID string) (string, error)
}

type currencyGuard struct {
	Tool
	fields CurrencyFields
	lookup CurrencyLookup
}

func guardCurrency(t Tool, fields CurrencyFields, lookup CurrencyLookup) Tool {
	return &currencyGuard{Tool: t, fields: fields, lookup: lookup}
}

func (g *currencyGuard) Unwrap() Tool { return g.Tool }

func (g *currencyGuard) Execute(ctx context.Context, inv Invocation) (Result, error) {
	var args map[string]any
	dec := json.NewDecoder(strings.NewReader(inv.Args))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return Result{}, &ArgumentParseError{Function: g.Name(), Err: err}
	}
	customerID := fmt.Sprint(args[g.fields.CustomerID])
	declared, _ := args[g.fields.Currency].(string)
	if args[g.fields.CustomerID] == nil || declared == "" {
		return Result{}, &ArgumentParseError{
			Function: g.Name(),
			Err:      fmt.Errorf("%s and %s are required", g.fields.CustomerID, g.fields.Currency),
		}
	}

	actual, err := g.lookup.Currency(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve currency for customer %s: %w", customerID, err)
	}
	if !strings.EqualFold(strings.TrimSpace(declared), strings.TrimSpace(actual)) {
		return Result{}, &CurrencyMismatchError{
			CustomerID: customerID,
			Declared:   strings.ToUpper(declared),
			Actual:     strings.ToUpper(actual),
		}
	}
	return g.Tool.Execute(ctx, inv)
}
