package mcpclient

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
)

func toDescriptor(t *mcp.Tool) tool.Descriptor {
	d := tool.Descriptor{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			d.InputSchema = raw
		}
	}
	return d
}

// convertResult maps a tool result onto the container shapes the normalizer understands.
// A result with structured content but no content items becomes a single JSON text item.
func convertResult(res *mcp.CallToolResult) *tool.RawResult {
	if len(res.Content) == 0 {
		if res.StructuredContent != nil {
			if raw, err := json.Marshal(res.StructuredContent); err == nil {
				return tool.Single(tool.TextItem(string(raw)))
			}
		}
		return &tool.RawResult{Shape: tool.ShapeAbsent}
	}

	items := make([]tool.Item, 0, len(res.Content))
	for _, c := range res.Content {
		items = append(items, convertContent(c))
	}
	return tool.Sequence(items...)
}

func convertContent(c mcp.Content) tool.Item {
	raw, _ := c.MarshalJSON()
	item := tool.Item{Raw: raw}

	switch v := c.(type) {
	case *mcp.TextContent:
		item.Type = "text"
		item.Text = v.Text
		item.HasText = true
	case *mcp.ImageContent:
		item.Type = "image"
		item.Data = v.Data
		item.MIMEType = v.MIMEType
	default:
		var head struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &head) == nil {
			item.Type = head.Type
		}
	}
	return item
}
