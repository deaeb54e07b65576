package tool

import "encoding/json"

// Shape is the container shape of a provider response.
type Shape int

const (
	// ShapeAbsent means the provider returned no content at all.
	ShapeAbsent Shape = iota
	// ShapeSequence is an ordered list of items.
	ShapeSequence
	// ShapeSingle is one item outside a list.
	ShapeSingle
	// ShapeLegacyText is a bare string with no item wrapper.
	ShapeLegacyText
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeSingle:
		return "single"
	case ShapeLegacyText:
		return "legacy_text"
	default:
		return "absent"
	}
}

// RawResult is the untyped envelope returned by a successful Session.Invoke.
// Provider-reported tool failures never reach it; they surface as *InvocationError.
type RawResult struct {
	Shape Shape
	// Items holds the content for ShapeSequence, or exactly one item for ShapeSingle.
	Items []Item
	// Text holds the payload for ShapeLegacyText.
	Text string
}

// Item is one content element. It may carry a text payload (possibly JSON),
// binary data with a MIME type, or neither, in which case only Raw describes it.
type Item struct {
	Type     string
	Text     string
	HasText  bool
	Data     []byte
	MIMEType string
	// Raw is the item's wire form, used when the item must be rendered as a string.
	Raw json.RawMessage
}

// TextItem builds an item carrying text.
func TextItem(text string) Item {
	raw, _ := json.Marshal(map[string]string{"type": "text", "text": text})
	return Item{Type: "text", Text: text, HasText: true, Raw: raw}
}

// Sequence wraps items as a ShapeSequence result.
func Sequence(items ...Item) *RawResult {
	return &RawResult{Shape: ShapeSequence, Items: items}
}

// Single wraps one item as a ShapeSingle result.
func Single(item Item) *RawResult {
	return &RawResult{Shape: ShapeSingle, Items: []Item{item}}
}

// LegacyText wraps a bare string result.
func LegacyText(text string) *RawResult {
	return &RawResult{Shape: ShapeLegacyText, Text: text}
}

// First returns the first content item. Legacy text is presented as a text item;
// an empty legacy string counts as no content.
func (r *RawResult) First() (Item, bool) {
	if r == nil {
		return Item{}, false
	}
	switch r.Shape {
	case ShapeSequence, ShapeSingle:
		if len(r.Items) > 0 {
			return r.Items[0], true
		}
	case ShapeLegacyText:
		if r.Text != "" {
			return TextItem(r.Text), true
		}
	}
	return Item{}, false
}

// Empty reports whether the result carries no content.
func (r *RawResult) Empty() bool {
	_, ok := r.First()
	return !ok
}

// String renders an item without a text payload.
func (i Item) String() string {
	if len(i.Raw) > 0 {
		return string(i.Raw)
	}
	if i.Type != "" {
		return "<" + i.Type + ">"
	}
	return "<empty>"
}
