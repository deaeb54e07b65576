package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRecord_JSONKeepsProviderKeys(t *testing.T) {
	t.Parallel()

	in := `{"title":"Go","href":"https://go.dev","score":0.93,"tags":["lang"],"source":""}`
	var r SearchRecord
	require.NoError(t, json.Unmarshal([]byte(in), &r))

	assert.Equal(t, "Go", r.Title)
	assert.Equal(t, "https://go.dev", r.Extra["href"])
	assert.Contains(t, r.Extra, "source", "empty known keys survive in Extra")

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestSearchRecord_MarshalOmitsEmpty(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(ErrorRecord("Search service temporarily unavailable"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Search service temporarily unavailable"}`, string(out))
	assert.True(t, ErrorRecord("x").IsError())
	assert.False(t, SearchRecord{Title: "t"}.IsError())
}

func TestSearchRecord_UnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()

	var r SearchRecord
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &r))
}

func TestRender(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", render("abc"))
	assert.Equal(t, "3.50", render(json.Number("3.50")))
	assert.Equal(t, "false", render(false))
	assert.Equal(t, "null", render(nil))
	assert.Equal(t, `{"a":[1,"b"]}`, render(map[string]any{"a": []any{json.Number("1"), "b"}}))
}
