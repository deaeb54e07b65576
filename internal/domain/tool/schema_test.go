package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckParameters(t *testing.T) {
	t.Parallel()

	strict := Descriptor{Name: "search", InputSchema: json.RawMessage(`{
		"type":"object",
		"required":["query"],
		"additionalProperties":false,
		"properties":{"query":{"type":"string"},"max_results":{"type":"integer"}}
	}`)}

	assert.NoError(t, strict.CheckParameters(map[string]any{"query": "go", "max_results": 5}))
	assert.ErrorIs(t, strict.CheckParameters(map[string]any{"max_results": 5}), ErrParamsMismatch)
	assert.ErrorContains(t, strict.CheckParameters(map[string]any{"query": "go", "page": 2}), `unknown field "page"`)

	loose := Descriptor{Name: "search", InputSchema: json.RawMessage(`{"type":"object","required":["query"]}`)}
	assert.NoError(t, loose.CheckParameters(map[string]any{"query": "go", "extra": true}))

	assert.NoError(t, Descriptor{Name: "x"}.CheckParameters(nil))
	assert.NoError(t, Descriptor{Name: "x", InputSchema: json.RawMessage(`not json`)}.CheckParameters(nil))
}
