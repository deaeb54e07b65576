// Package providertest runs real MCP tool providers on httptest servers.
package providertest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleFunc answers one tool call. A returned error becomes a protocol error.
type HandleFunc func(args map[string]any) (*mcp.CallToolResult, error)

// Tool is one tool served by a Provider.
type Tool struct {
	Name   string
	Schema json.RawMessage // defaults to {"type":"object"}
	Handle HandleFunc
}

// Call is a recorded tools/call request.
type Call struct {
	Tool string
	Args map[string]any
}

// Provider is a streamable-HTTP MCP server. Tools are listed in name order.
type Provider struct {
	*httptest.Server

	mu      sync.Mutex
	apiKeys []string
	calls   []Call
}

// New starts a provider serving tools and stops it when the test ends.
func New(t testing.TB, tools ...Tool) *Provider {
	t.Helper()

	p := &Provider{}
	server := mcp.NewServer(&mcp.Implementation{Name: "fake-provider", Version: "test"}, nil)
	for _, tl := range tools {
		server.AddTool(&mcp.Tool{Name: tl.Name, InputSchema: schemaOrDefault(tl.Schema)}, p.handler(tl))
	}

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.apiKeys = append(p.apiKeys, r.URL.Query().Get("api_key"))
		p.mu.Unlock()
		mcpHandler.ServeHTTP(w, r)
	}))
	t.Cleanup(p.Close)
	return p
}

func (p *Provider) handler(tl Tool) mcp.ToolHandler {
	return func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, err
			}
		}
		p.mu.Lock()
		p.calls = append(p.calls, Call{Tool: tl.Name, Args: args})
		p.mu.Unlock()

		if tl.Handle == nil {
			return &mcp.CallToolResult{}, nil
		}
		return tl.Handle(args)
	}
}

// Calls returns the tool calls received so far.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// APIKeys returns the api_key query value of every HTTP request received.
func (p *Provider) APIKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.apiKeys...)
}

// Unavailable starts a server that answers every request with 503.
func Unavailable(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Text returns a handler that answers with one text item per string.
func Text(texts ...string) HandleFunc {
	return func(map[string]any) (*mcp.CallToolResult, error) {
		content := make([]mcp.Content, len(texts))
		for i, s := range texts {
			content[i] = &mcp.TextContent{Text: s}
		}
		return &mcp.CallToolResult{Content: content}, nil
	}
}

// ToolError returns a handler whose result is flagged IsError.
func ToolError(msg string) HandleFunc {
	return func(map[string]any) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: msg}}, IsError: true}, nil
	}
}

func schemaOrDefault(s json.RawMessage) json.RawMessage {
	if len(s) == 0 {
		return json.RawMessage(`{"type":"object"}`)
	}
	return s
}
