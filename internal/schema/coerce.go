package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CoerceCollections rewrites arguments whose schema type is array or object
// but which arrived as a JSON-encoded string, e.g. {"ids": "[1, 2]"}.
// Models emit this shape often enough that it is repaired rather than
// rejected. Arguments that are not a JSON object are returned untouched so
// that validation reports them.
func CoerceCollections(schemaData any, argsJSON string) (string, error) {
	if strings.TrimSpace(argsJSON) == "" {
		return "{}", nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return argsJSON, nil
	}

	props, err := properties(schemaData)
	if err != nil {
		return "", err
	}

	changed := false
	for name, raw := range args {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		want := props[name]
		if want != "array" && want != "object" {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return "", fmt.Errorf("argument %q: expected %s, got unparsable string: %w", name, want, err)
		}
		args[name] = decoded
		changed = true
	}
	if !changed {
		return argsJSON, nil
	}
	out, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// properties maps each top-level property name to its declared JSON type.
func properties(schemaData any) (map[string]string, error) {
	var b []byte
	switch s := schemaData.(type) {
	case string:
		b = []byte(s)
	default:
		var err error
		if b, err = json.Marshal(schemaData); err != nil {
			return nil, err
		}
	}
	var doc struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("invalid schema definition: %w", err)
	}
	out := make(map[string]string, len(doc.Properties))
	for name, p := range doc.Properties {
		out[name] = p.Type
	}
	return out, nil
}
