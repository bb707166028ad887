package schema

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// maxIssues bounds how many schema violations reach the model.
const maxIssues = 3

// ValidationError lists the ways a tool call's arguments break its schema.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	shown := e.Issues
	if len(shown) > maxIssues {
		shown = shown[:maxIssues]
	}
	var b strings.Builder
	b.WriteString("arguments do not match the parameter schema:")
	for _, issue := range shown {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	if extra := len(e.Issues) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n(%d more)", extra)
	}
	return b.String()
}

// Validator checks tool arguments against parameter schemas, compiling each
// distinct schema once.
type Validator struct {
	mu       sync.Mutex
	compiled map[[sha256.Size]byte]*gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{compiled: make(map[[sha256.Size]byte]*gojsonschema.Schema)}
}

// Validate reports a *ValidationError when argsJSON breaks the schema. The
// schema may be raw JSON (string or []byte) or any value that marshals to it.
func (v *Validator) Validate(parameters any, argsJSON string) error {
	s, err := v.schemaFor(parameters)
	if err != nil {
		return fmt.Errorf("parameter schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if res.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, re := range res.Errors() {
		verr.Issues = append(verr.Issues, re.String())
	}
	return verr
}

func (v *Validator) schemaFor(parameters any) (*gojsonschema.Schema, error) {
	raw, err := rawSchema(parameters)
	if err != nil {
		return nil, err
	}
	key := sha256.Sum256(raw)

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[key]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	v.compiled[key] = s
	return s, nil
}

func (v *Validator) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.compiled)
}

func rawSchema(parameters any) ([]byte, error) {
	switch p := parameters.(type) {
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(p)
	}
}
