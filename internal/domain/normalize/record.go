package normalize

import (
	"encoding/json"
	"errors"
	"maps"
)

var errNotObject = errors.New("normalize: search record must be a JSON object")

// SearchRecord is one canonical search hit. Mappings returned by a provider are
// kept verbatim: well-known string keys land in the named fields and every other
// key (or a well-known key with a non-string or empty value) is kept in Extra.
type SearchRecord struct {
	Title   string
	Content string
	Snippet string
	URL     string
	Source  string
	// Error is set on records that describe a failed search.
	Error string
	Extra map[string]any
}

var knownKeys = []string{"title", "content", "snippet", "url", "source", "error"}

func (r *SearchRecord) field(key string) *string {
	switch key {
	case "title":
		return &r.Title
	case "content":
		return &r.Content
	case "snippet":
		return &r.Snippet
	case "url":
		return &r.URL
	case "source":
		return &r.Source
	case "error":
		return &r.Error
	}
	return nil
}

// RecordFromMap builds a record from a decoded provider mapping.
func RecordFromMap(m map[string]any) SearchRecord {
	var r SearchRecord
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" {
			if f := r.field(k); f != nil {
				*f = s
				continue
			}
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any, len(m))
		}
		r.Extra[k] = v
	}
	return r
}

// ErrorRecord is the in-band shape of a failed search.
func ErrorRecord(msg string) SearchRecord {
	return SearchRecord{Error: msg}
}

// IsError reports whether the record describes a failure.
func (r SearchRecord) IsError() bool {
	return r.Error != ""
}

// MarshalJSON writes the record as a flat object; empty named fields are omitted.
func (r SearchRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+len(knownKeys))
	maps.Copy(out, r.Extra)
	for _, k := range knownKeys {
		if v := *r.field(k); v != "" {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *SearchRecord) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(string(data))
	if err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return errNotObject
	}
	*r = RecordFromMap(m)
	return nil
}
