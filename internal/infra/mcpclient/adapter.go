// Package mcpclient implements tool.Connector over the Model Context Protocol
// (streamable HTTP transport). Each Open performs the initialize handshake; the
// returned session is meant for one logical request and must be closed.
package mcpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
)

// ConnectionError and InvocationError are the adapter's failure types.
type (
	ConnectionError = tool.ConnectionError
	InvocationError = tool.InvocationError
)

// TransportFactory builds the transport for one session.
type TransportFactory func(endpoint string) mcp.Transport

// Adapter opens MCP client sessions. It holds no per-session state and is safe for concurrent use.
type Adapter struct {
	client     *mcp.Client
	httpClient *http.Client
	transport  TransportFactory
	logger     *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the HTTP client used by the default transport.
// The adapter sets no timeout of its own; deadlines come from the caller's context.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithTransport replaces the streamable HTTP transport, e.g. with in-memory transports in tests.
func WithTransport(f TransportFactory) Option {
	return func(a *Adapter) { a.transport = f }
}

// New returns an Adapter identifying itself to providers as name/version.
func New(name, version string, logger *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		client:     mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, nil),
		httpClient: http.DefaultClient,
		logger:     logging.OrNop(logger).Named("mcpclient"),
	}
	a.transport = a.streamableTransport
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) streamableTransport(endpoint string) mcp.Transport {
	return &mcp.StreamableClientTransport{
		Endpoint:             endpoint,
		HTTPClient:           a.httpClient,
		MaxRetries:           -1,
		DisableStandaloneSSE: true,
	}
}

// Open connects to endpoint and completes the initialize handshake.
// Failures return *ConnectionError and are not retried.
func (a *Adapter) Open(ctx context.Context, endpoint string) (tool.Session, error) {
	secret := apiKeyOf(endpoint)
	display := Redact(endpoint)

	cs, err := a.client.Connect(ctx, a.transport(endpoint), nil)
	if err != nil {
		a.logger.Warn("connect failed", zap.String("endpoint", display), zap.Error(redactErr(err, secret)))
		return nil, &ConnectionError{Endpoint: display, Op: "connect", Err: redactErr(err, secret)}
	}
	a.logger.Debug("session opened", zap.String("endpoint", display), zap.String("session_id", cs.ID()))
	return &session{cs: cs, endpoint: display, secret: secret, logger: a.logger}, nil
}

type session struct {
	cs       *mcp.ClientSession
	endpoint string
	secret   string
	logger   *zap.Logger
}

func (s *session) ListTools(ctx context.Context) ([]tool.Descriptor, error) {
	var out []tool.Descriptor
	for t, err := range s.cs.Tools(ctx, nil) {
		if err != nil {
			return nil, &ConnectionError{Endpoint: s.endpoint, Op: "list tools", Err: redactErr(err, s.secret)}
		}
		out = append(out, toDescriptor(t))
	}
	s.logger.Debug("tools listed", zap.String("endpoint", s.endpoint), zap.Strings("tools", tool.Names(out)))
	return out, nil
}

func (s *session) Invoke(ctx context.Context, req tool.InvocationRequest) (*tool.RawResult, error) {
	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{Name: req.ToolName, Arguments: req.Parameters})
	if err != nil {
		return nil, &InvocationError{Tool: req.ToolName, Err: redactErr(err, s.secret)}
	}
	if res.IsError {
		return nil, &InvocationError{Tool: req.ToolName, Err: errors.New(errorText(res))}
	}
	out := convertResult(res)
	s.logger.Debug("tool invoked",
		zap.String("endpoint", s.endpoint),
		zap.String("tool", req.ToolName),
		zap.Stringer("shape", out.Shape),
		zap.Int("items", len(out.Items)),
	)
	return out, nil
}

func (s *session) Close() error {
	return s.cs.Close()
}

// errorText joins the text items of a result flagged as an error.
func errorText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok && tc.Text != "" {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "; ")
}
