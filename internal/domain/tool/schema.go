package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrParamsMismatch means the parameters we send disagree with the tool's advertised schema.
var ErrParamsMismatch = errors.New("tool params do not match advertised schema")

// CheckParameters compares params against the descriptor's input schema: every
// required key must be present, and with additionalProperties=false no unknown
// key may be sent. A missing or unparsable schema accepts anything.
func (d Descriptor) CheckParameters(params map[string]any) error {
	if len(d.InputSchema) == 0 {
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
		return nil
	}

	for _, key := range extractStringSlice(schema["required"]) {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrParamsMismatch, key)
		}
	}

	allowAdditional := true
	if v, ok := schema["additionalProperties"].(bool); ok {
		allowAdditional = v
	}
	if allowAdditional {
		return nil
	}

	allowed := map[string]struct{}{}
	if props, ok := schema["properties"].(map[string]any); ok {
		for key := range props {
			allowed[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrParamsMismatch, key)
		}
	}
	return nil
}

func extractStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
