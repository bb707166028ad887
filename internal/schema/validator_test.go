package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var budgetSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"customer_id": map[string]any{"type": "string"},
		"amount":      map[string]any{"type": "number"},
		"campaign_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"customer_id", "amount"},
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.Validate(budgetSchema, `{"customer_id":"1","amount":10}`))

	err := v.Validate(budgetSchema, `{"customer_id":"1"}`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 1)
	assert.Contains(t, err.Error(), "amount")

	err = v.Validate(budgetSchema, `{"customer_id":1,"amount":"ten"}`)
	require.Error(t, err)

	err = v.Validate(budgetSchema, `{not json`)
	require.Error(t, err)
	assert.False(t, errors.As(err, &verr))
}

func TestValidationError_TruncatesIssues(t *testing.T) {
	err := &ValidationError{Issues: []string{"a", "b", "c", "d", "e"}}
	msg := err.Error()
	assert.Contains(t, msg, "- c")
	assert.NotContains(t, msg, "- d")
	assert.Contains(t, msg, "(2 more)")
}

func TestValidator_CachesCompiledSchema(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Validate(budgetSchema, `{"customer_id":"1","amount":1}`))
	require.NoError(t, v.Validate(budgetSchema, `{"customer_id":"2","amount":2}`))

	assert.Equal(t, 1, v.size())

	require.NoError(t, v.Validate(`{"type":"object"}`, `{}`))
	assert.Equal(t, 2, v.size())
}

func TestCoerceCollections(t *testing.T) {
	out, err := CoerceCollections(budgetSchema, `{"customer_id":"1","amount":3,"campaign_ids":"[\"a\",\"b\"]"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer_id":"1","amount":3,"campaign_ids":["a","b"]}`, out)

	out, err = CoerceCollections(budgetSchema, `{"customer_id":"1","amount":3}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer_id":"1","amount":3}`, out)

	out, err = CoerceCollections(budgetSchema, "")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)

	_, err = CoerceCollections(budgetSchema, `{"campaign_ids":"[oops"}`)
	assert.Error(t, err)
}
