package tools

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownFunctionError is returned when a model calls a function that is not
// in the table. It is recoverable: the text goes back into the conversation.
type UnknownFunctionError struct {
	Name       string
	Suggestion string
}

func (e *UnknownFunctionError) Error() string {
	msg := fmt.Sprintf("unknown function %q", e.Name)
	if e.Suggestion != "" {
		return msg + fmt.Sprintf(". Did you mean %q? Please retry with the correct name.", e.Suggestion)
	}
	return msg + ". Please check the available functions and retry with a valid name."
}

// ArgumentParseError wraps malformed or schema-violating arguments.
type ArgumentParseError struct {
	Function string
	Err      error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v. Please fix the arguments and retry.", e.Function, e.Err)
}

func (e *ArgumentParseError) Unwrap() error { return e.Err }

// CurrencyMismatchError is raised by the currency guard before a monetary
// mutation runs. The caller is expected to restate the amount and ask for
// approval again.
type CurrencyMismatchError struct {
	CustomerID string
	Declared   string
	Actual     string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch for customer %s: declared %s but the account currency is %s; restate the amount in %s and ask the client to approve it again",
		e.CustomerID, e.Declared, e.Actual, e.Actual)
}

// HandlerError wraps a failure inside a tool, including recovered panics.
type HandlerError struct {
	Function string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Function, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// ErrInvalidRegistration is returned when a tool cannot be added to a table.
var ErrInvalidRegistration = errors.New("tools: invalid registration")

// Recoverable reports whether err belongs to the class of dispatch failures
// that are rendered into the conversation instead of aborting the caller.
func Recoverable(err error) bool {
	var (
		unknown  *UnknownFunctionError
		args     *ArgumentParseError
		currency *CurrencyMismatchError
		handler  *HandlerError
	)
	return errors.As(err, &unknown) || errors.As(err, &args) ||
		errors.As(err, &currency) || errors.As(err, &handler)
}

// suggest picks the registered name sharing the most underscore-separated
// words with the hallucinated one.
func suggest(name string, known []string) string {
	words := strings.Split(strings.ToLower(name), "_")
	best, bestScore := "", 0
	for _, k := range known {
		score := 0
		for _, w := range strings.Split(k, "_") {
			for _, have := range words {
				if w != "" && w == have {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	return best
}
