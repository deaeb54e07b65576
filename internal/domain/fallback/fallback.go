// Package fallback produces synthetic but well-formed results when the remote
// tool providers are disabled or cannot serve a request.
package fallback

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/matiasleandrokruk/explorer/internal/domain/normalize"
)

const (
	// MaxSearchResults caps the synthetic result list.
	MaxSearchResults = 5
	// SearchSource attributes synthetic search records.
	SearchSource = "Mock Search Engine"
	// PlaceholderImageData is a 1x1 PNG.
	PlaceholderImageData = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8/5+hHgAHggJ/PchI7wAAAABJRU5ErkJggg=="

	DefaultSearchLatency = 500 * time.Millisecond
	DefaultImageLatency  = time.Second
)

// Provider is the fallback implementation. The zero value has no latency.
type Provider struct {
	SearchLatency time.Duration
	ImageLatency  time.Duration
}

// New returns a provider with the given simulated latencies.
func New(searchLatency, imageLatency time.Duration) *Provider {
	return &Provider{SearchLatency: searchLatency, ImageLatency: imageLatency}
}

// Search returns min(maxResults, MaxSearchResults) records referencing query.
// It waits SearchLatency first; a canceled ctx cuts the wait short without failing.
func (p *Provider) Search(ctx context.Context, query string, maxResults int) []normalize.SearchRecord {
	sleep(ctx, p.SearchLatency)

	n := max(min(maxResults, MaxSearchResults), 0)
	out := make([]normalize.SearchRecord, n)
	for i := range out {
		idx := i + 1
		out[i] = normalize.SearchRecord{
			Title:   fmt.Sprintf("Search Result %d for '%s'", idx, query),
			Snippet: fmt.Sprintf("Mock search result snippet for query: %s. Result number %d.", query, idx),
			URL:     fmt.Sprintf("https://example.com/result-%d", idx),
			Source:  SearchSource,
		}
	}
	return out
}

// Image returns a placeholder image sized width x height. It never fails.
func (p *Provider) Image(ctx context.Context, prompt string, width, height int) normalize.ImageRecord {
	sleep(ctx, p.ImageLatency)

	return normalize.ImageRecord{
		ImageURL:   fmt.Sprintf("https://picsum.photos/%d/%d?random=%d", width, height, seed(prompt)),
		ImageData:  PlaceholderImageData,
		Status:     normalize.ImageStatusSuccess,
		PromptUsed: prompt,
	}
}

// seed maps a prompt to a stable value in [0, 1000).
func seed(prompt string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum32() % 1000
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
