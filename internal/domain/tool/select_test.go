package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func descriptors(names ...string) []Descriptor {
	out := make([]Descriptor, len(names))
	for i, n := range names {
		out[i] = Descriptor{Name: n}
	}
	return out
}

func TestSelectTool(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		tools    []string
		keywords []string
		want     string
		found    bool
	}{
		{"search match", []string{"fetch_content", "search"}, SearchKeywords, "search", true},
		{"case insensitive", []string{"WebSearch"}, SearchKeywords, "WebSearch", true},
		{"provider order wins over keyword order", []string{"flux_create", "generate_image"}, ImageKeywords, "flux_create", true},
		{"any keyword matches", []string{"list_models", "imageMaker"}, ImageKeywords, "imageMaker", true},
		{"ambiguous names keep first", []string{"search_news", "search_web"}, SearchKeywords, "search_news", true},
		{"not found", []string{"fetch", "summarize"}, SearchKeywords, "", false},
		{"empty list", nil, ImageKeywords, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SelectTool(descriptors(tc.tools...), tc.keywords)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got.Name)
		})
	}
}

func TestSelectTool_EmptyKeywordNeverMatches(t *testing.T) {
	t.Parallel()

	_, ok := SelectTool(descriptors("anything"), []string{""})
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"b", "a"}, Names(descriptors("b", "a")))
	assert.Empty(t, Names(nil))
}
