// Package normalize turns raw provider envelopes into canonical search and image records.
//
// Provider response schemas are not versioned, so decoding is best effort: every
// input, however malformed, yields some well-formed record. Per content item the
// parsers run in order and the first that accepts the item wins:
//
//  1. JSON text: a mapping is one record, a sequence is flattened one level,
//     a scalar is wrapped in the fallback template.
//  2. Plain text: the raw text is wrapped in the fallback template.
//  3. Opaque item: the item's wire form is wrapped in the fallback template.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
)

// itemParser extracts candidate values from one content item. ok=false hands
// the item to the next parser. Candidates that are not mappings are later
// rendered with render and wrapped in the fallback template.
type itemParser func(item tool.Item) (candidates []any, ok bool)

var itemParsers = []itemParser{parseJSONText, parsePlainText, parseOpaque}

func parseItem(item tool.Item) []any {
	for _, p := range itemParsers {
		if out, ok := p(item); ok {
			return out
		}
	}
	return nil
}

func parseJSONText(item tool.Item) ([]any, bool) {
	if !item.HasText {
		return nil, false
	}
	v, err := decodeJSON(item.Text)
	if err != nil {
		return nil, false
	}
	if seq, ok := v.([]any); ok {
		return seq, true
	}
	return []any{v}, true
}

func parsePlainText(item tool.Item) ([]any, bool) {
	if !item.HasText {
		return nil, false
	}
	return []any{item.Text}, true
}

func parseOpaque(item tool.Item) ([]any, bool) {
	return []any{item.String()}, true
}

var errTrailingData = errors.New("invalid character after top-level value")

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

// render converts a decoded value to display text: strings as-is, everything else as compact JSON.
func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "null"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
