// Package explore runs search and image generation requests against the remote
// tool providers, or against the fallback provider when they are unavailable.
package explore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/explorer/internal/domain/fallback"
	"github.com/matiasleandrokruk/explorer/internal/domain/normalize"
	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
	"github.com/matiasleandrokruk/explorer/internal/infra/eventbus"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	"github.com/matiasleandrokruk/explorer/internal/infra/metrics"
)

// Mode selects where requests are served from. It is fixed for the life of a Service.
type Mode int

const (
	ModeLive Mode = iota
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "live"
}

// Kind labels the two request families in metrics and events.
const (
	KindSearch = "search"
	KindImage  = "image"
)

// Input limits.
const (
	MaxQueryLength  = 500
	MinMaxResults   = 1
	MaxMaxResults   = 50
	MaxPromptLength = 1000
	MinDimension    = 256
	MaxDimension    = 1024
	MinSteps        = 10
	MaxSteps        = 50
)

const (
	msgSearchToolMissing  = "Search service temporarily unavailable"
	msgSearchUnavailable  = "Search service unavailable: "
	msgImageUnavailable   = "Image generation service unavailable: "
	defaultSearchProvider = "DuckDuckGo"
)

var (
	ErrInvalidQuery      = errors.New("query must be 1-500 characters")
	ErrInvalidMaxResults = errors.New("max_results must be between 1 and 50")
	ErrInvalidPrompt     = errors.New("prompt must be 1-1000 characters")
	ErrInvalidDimensions = errors.New("width and height must be between 256 and 1024")
	ErrInvalidSteps      = errors.New("steps must be between 10 and 50")
)

// Config is the immutable provider configuration.
type Config struct {
	Mode Mode
	// SearchEndpoint and ImageEndpoint are complete provider URLs, credential included.
	SearchEndpoint string
	ImageEndpoint  string
	// SearchProviderName attributes templated search records.
	SearchProviderName string
}

// SearchRequest is a validated-on-entry search.
type SearchRequest struct {
	Query      string
	MaxResults int
}

// ImageRequest is a validated-on-entry image generation.
type ImageRequest struct {
	Prompt string
	Width  int
	Height int
	Steps  int
}

// Service is safe for concurrent use. Every live request opens its own provider session.
type Service struct {
	cfg       Config
	connector tool.Connector
	fallback  *fallback.Provider
	bus       eventbus.EventBus
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Service) { s.bus = bus }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds the service. connector may be nil in ModeFallback.
func NewService(cfg Config, connector tool.Connector, fb *fallback.Provider, opts ...Option) *Service {
	if cfg.SearchProviderName == "" {
		cfg.SearchProviderName = defaultSearchProvider
	}
	if fb == nil {
		fb = fallback.New(fallback.DefaultSearchLatency, fallback.DefaultImageLatency)
	}
	s := &Service{cfg: cfg, connector: connector, fallback: fb}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("explore")
	if s.connector == nil {
		s.cfg.Mode = ModeFallback
	}
	return s
}

// Mode reports where requests are served from.
func (s *Service) Mode() Mode {
	return s.cfg.Mode
}

// Search returns normalized records for req. Provider failures are reported
// in-band as a single error record; only invalid input returns an error.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]normalize.SearchRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	if s.cfg.Mode == ModeFallback {
		records := s.fallback.Search(ctx, req.Query, req.MaxResults)
		s.finish(ctx, KindSearch, "", metrics.OutcomeFallback, start, nil)
		return records, nil
	}

	var (
		records  []normalize.SearchRecord
		toolName string
		outcome  = metrics.OutcomeSuccess
	)
	err := tool.WithSession(ctx, s.connector, s.cfg.SearchEndpoint, func(sess tool.Session) error {
		tools, err := sess.ListTools(ctx)
		if err != nil {
			return err
		}
		d, ok := tool.SelectTool(tools, tool.SearchKeywords)
		if !ok {
			s.logger.Warn("no search tool advertised", zap.Strings("tools", tool.Names(tools)))
			outcome = metrics.OutcomeToolMissing
			records = []normalize.SearchRecord{normalize.ErrorRecord(msgSearchToolMissing)}
			return nil
		}
		toolName = d.Name

		params := map[string]any{"query": req.Query, "max_results": req.MaxResults}
		s.checkParameters(d, params)
		raw, err := sess.Invoke(ctx, tool.InvocationRequest{ToolName: d.Name, Parameters: params})
		if err != nil {
			return err
		}
		records = normalize.Search(raw, req.Query, req.MaxResults, s.cfg.SearchProviderName)
		return nil
	})
	if err != nil {
		outcome = classify(err)
		records = []normalize.SearchRecord{normalize.ErrorRecord(msgSearchUnavailable + err.Error())}
	}

	s.finish(ctx, KindSearch, toolName, outcome, start, err)
	return records, nil
}

// GenerateImage returns a normalized image record for req. Provider failures are
// reported in-band with status error; a provider without an image tool is served
// by the fallback provider.
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (normalize.ImageRecord, error) {
	if err := req.Validate(); err != nil {
		return normalize.ImageRecord{}, err
	}
	start := time.Now()

	if s.cfg.Mode == ModeFallback {
		rec := s.fallback.Image(ctx, req.Prompt, req.Width, req.Height)
		s.finish(ctx, KindImage, "", metrics.OutcomeFallback, start, nil)
		return rec, nil
	}

	var (
		rec      normalize.ImageRecord
		toolName string
		outcome  = metrics.OutcomeSuccess
	)
	err := tool.WithSession(ctx, s.connector, s.cfg.ImageEndpoint, func(sess tool.Session) error {
		tools, err := sess.ListTools(ctx)
		if err != nil {
			return err
		}
		d, ok := tool.SelectTool(tools, tool.ImageKeywords)
		if !ok {
			s.logger.Warn("no image tool advertised, using fallback", zap.Strings("tools", tool.Names(tools)))
			outcome = metrics.OutcomeToolMissing
			return nil
		}
		toolName = d.Name

		params := map[string]any{
			"prompt": req.Prompt,
			"width":  req.Width,
			"height": req.Height,
			"steps":  req.Steps,
		}
		s.checkParameters(d, params)
		raw, err := sess.Invoke(ctx, tool.InvocationRequest{ToolName: d.Name, Parameters: params})
		if err != nil {
			return err
		}
		rec = normalize.Image(raw, req.Prompt)
		return nil
	})

	switch {
	case err != nil:
		outcome = classify(err)
		rec = normalize.ImageError(req.Prompt, msgImageUnavailable+err.Error())
	case outcome == metrics.OutcomeToolMissing:
		// session is already closed here
		rec = s.fallback.Image(ctx, req.Prompt, req.Width, req.Height)
		s.metrics.ObserveFallback(KindImage)
	}

	s.finish(ctx, KindImage, toolName, outcome, start, err)
	return rec, nil
}

// checkParameters logs when the selected tool's schema disagrees with what we send.
// The call proceeds either way; the provider has the final word.
func (s *Service) checkParameters(d tool.Descriptor, params map[string]any) {
	if err := d.CheckParameters(params); err != nil {
		s.logger.Warn("tool schema mismatch", zap.String("tool", d.Name), zap.Error(err))
	}
}

func (s *Service) finish(ctx context.Context, kind, toolName, outcome string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.metrics.ObserveTool(kind, outcome, elapsed)
	if outcome == metrics.OutcomeFallback {
		s.metrics.ObserveFallback(kind)
	}

	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("tool", toolName),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		s.logger.Warn("tool request failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("tool request served", fields...)
	}

	if s.bus == nil {
		return
	}
	evt := InvocationEvent{
		UserID:   ctxkeys.String(ctx, ctxkeys.UserID),
		Kind:     kind,
		Tool:     toolName,
		Mode:     s.cfg.Mode.String(),
		Outcome:  outcome,
		Duration: elapsed,
		At:       time.Now().UTC(),
	}
	if err != nil {
		evt.Error = err.Error()
	}
	s.bus.Publish(eventbus.TopicToolInvoked, evt)
}

// InvocationEvent is published on eventbus.TopicToolInvoked after every request.
type InvocationEvent struct {
	UserID   string        `json:"user_id,omitempty"`
	Kind     string        `json:"kind"`
	Tool     string        `json:"tool,omitempty"`
	Mode     string        `json:"mode"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

func classify(err error) string {
	switch {
	case tool.IsConnectionError(err):
		return metrics.OutcomeConnection
	default:
		return metrics.OutcomeInvocation
	}
}

// Validate checks the query and result limit.
func (r SearchRequest) Validate() error {
	n := utf8.RuneCountInString(r.Query)
	if strings.TrimSpace(r.Query) == "" || n > MaxQueryLength {
		return ErrInvalidQuery
	}
	if r.MaxResults < MinMaxResults || r.MaxResults > MaxMaxResults {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxResults, r.MaxResults)
	}
	return nil
}

// Validate checks the prompt, dimensions and step count.
func (r ImageRequest) Validate() error {
	n := utf8.RuneCountInString(r.Prompt)
	if strings.TrimSpace(r.Prompt) == "" || n > MaxPromptLength {
		return ErrInvalidPrompt
	}
	if r.Width < MinDimension || r.Width > MaxDimension || r.Height < MinDimension || r.Height > MaxDimension {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, r.Width, r.Height)
	}
	if r.Steps < MinSteps || r.Steps > MaxSteps {
		return fmt.Errorf("%w: got %d", ErrInvalidSteps, r.Steps)
	}
	return nil
}
