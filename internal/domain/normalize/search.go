package normalize

import (
	"fmt"

	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
)

// Search normalizes a search tool result into at most maxResults records, in
// provider order. The result is never empty: missing content and an empty
// final list each produce a single sentinel record attributed to provider.
func Search(res *tool.RawResult, query string, maxResults int, provider string) []SearchRecord {
	if res == nil || res.Empty() {
		return []SearchRecord{{
			Title:   fmt.Sprintf("Search completed for '%s'", query),
			Content: "No results available",
			Source:  provider,
		}}
	}

	var candidates []any
	switch res.Shape {
	case tool.ShapeSequence, tool.ShapeSingle:
		for _, item := range res.Items {
			candidates = append(candidates, parseItem(item)...)
		}
	case tool.ShapeLegacyText:
		candidates = parseItem(tool.TextItem(res.Text))
	}

	if maxResults >= 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	records := make([]SearchRecord, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, coerce(c, query, provider))
	}
	if len(records) == 0 {
		return []SearchRecord{{
			Title:   fmt.Sprintf("No results found for '%s'", query),
			Content: "No search results available",
			Source:  provider,
		}}
	}
	return records
}

func coerce(v any, query, provider string) SearchRecord {
	if m, ok := v.(map[string]any); ok {
		return RecordFromMap(m)
	}
	return templateRecord(render(v), query, provider)
}

func templateRecord(content, query, provider string) SearchRecord {
	return SearchRecord{
		Title:   fmt.Sprintf("Search result for '%s'", query),
		Content: content,
		Source:  provider,
	}
}
