package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":   map[string]any{"type": "string"},
			"count":  map[string]any{"type": "integer"},
			"weight": map[string]any{"type": "number"},
			"active": map[string]any{"type": "boolean"},
			"tags":   map[string]any{"type": "array"},
			"extra":  map[string]any{"type": "object"},
		},
		"required": []string{"name"},
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{
			"name":   "a",
			"count":  3,
			"weight": 1.5,
			"active": true,
			"tags":   []any{"x"},
			"extra":  map[string]any{},
		}, schema))
	})

	t.Run("missing required", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"count": 3}, schema)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "name", verr.Field)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"name": 42}, schema)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "name", verr.Field)
	})

	t.Run("json float for integer field", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"name": "a", "count": 3.0}, schema))
		assert.Error(t, ValidateParameters(map[string]any{"name": "a", "count": 3.5}, schema))
	})

	t.Run("extra fields allowed", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"name": "a", "undeclared": 1}, schema))
	})

	t.Run("required as decoded json", func(t *testing.T) {
		decoded := map[string]any{
			"type":       "object",
			"properties": map[string]any{"name": map[string]any{"type": "string"}},
			"required":   []any{"name"},
		}
		assert.Error(t, ValidateParameters(map[string]any{}, decoded))
		assert.NoError(t, ValidateParameters(map[string]any{"name": "a"}, decoded))
	})

	t.Run("nil value passes", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"name": nil}, schema))
	})
}
