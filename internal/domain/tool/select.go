package tool

import (
	"slices"
	"strings"
)

var (
	// SearchKeywords select a web search tool.
	SearchKeywords = []string{"search"}
	// ImageKeywords select an image generation tool.
	ImageKeywords = []string{"generate", "image", "flux"}
)

// SelectTool returns the first tool, in provider order, whose lowercased name
// contains any of keywords. Ambiguity is resolved by order alone.
func SelectTool(tools []Descriptor, keywords []string) (Descriptor, bool) {
	for _, t := range tools {
		name := strings.ToLower(t.Name)
		if slices.ContainsFunc(keywords, func(kw string) bool {
			return kw != "" && strings.Contains(name, strings.ToLower(kw))
		}) {
			return t, true
		}
	}
	return Descriptor{}, false
}

// Names lists tool names in order, for logging.
func Names(tools []Descriptor) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}
