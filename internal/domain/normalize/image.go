package normalize

import (
	"encoding/base64"
	"strings"

	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
)

// ImageStatus is the outcome of an image generation request.
type ImageStatus string

const (
	ImageStatusSuccess ImageStatus = "success"
	ImageStatusError   ImageStatus = "error"
)

// ImageRecord is the canonical image generation result.
type ImageRecord struct {
	ImageURL   string      `json:"image_url,omitempty"`
	ImageData  string      `json:"image_data,omitempty"`
	Status     ImageStatus `json:"status"`
	PromptUsed string      `json:"prompt_used"`
	Error      string      `json:"error,omitempty"`
}

var (
	imageURLKeys  = []string{"imageUrl", "image_url", "url"}
	imageDataKeys = []string{"imageData", "image_data", "data", "base64"}
)

// imageParser fills rec from one item. ok=false hands the item to the next parser.
type imageParser func(item tool.Item, rec *ImageRecord) (ok bool)

var imageParsers = []imageParser{imageFromJSON, imageFromRawText, imageFromBinary}

// Image normalizes an image tool result. Only the first content item is read.
// Extraction never fails: fields the payload does not provide stay empty and
// the status is success, since the invocation itself succeeded.
func Image(res *tool.RawResult, prompt string) ImageRecord {
	rec := ImageRecord{Status: ImageStatusSuccess, PromptUsed: prompt}
	item, ok := res.First()
	if !ok {
		return rec
	}
	for _, p := range imageParsers {
		if p(item, &rec) {
			break
		}
	}
	return rec
}

// ImageError is the in-band shape of a failed image generation.
func ImageError(prompt, msg string) ImageRecord {
	return ImageRecord{Status: ImageStatusError, PromptUsed: prompt, Error: msg}
}

func imageFromJSON(item tool.Item, rec *ImageRecord) bool {
	if !item.HasText {
		return false
	}
	v, err := decodeJSON(item.Text)
	if err != nil {
		return false
	}
	if m, ok := v.(map[string]any); ok {
		rec.ImageURL = firstString(m, imageURLKeys)
		rec.ImageData = firstString(m, imageDataKeys)
	}
	return true
}

func imageFromRawText(item tool.Item, rec *ImageRecord) bool {
	if !item.HasText {
		return false
	}
	text := strings.TrimSpace(item.Text)
	switch {
	case strings.HasPrefix(text, "http"):
		rec.ImageURL = text
	case strings.HasPrefix(text, "data:image/"):
		rec.ImageData = text
	}
	return true
}

// imageFromBinary accepts inline image content and encodes it as a data URI.
func imageFromBinary(item tool.Item, rec *ImageRecord) bool {
	if len(item.Data) == 0 || !strings.HasPrefix(item.MIMEType, "image/") {
		return false
	}
	rec.ImageData = "data:" + item.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(item.Data)
	return true
}

// firstString returns the value of the first key holding a non-empty string.
func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
