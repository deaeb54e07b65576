// Package tool defines the contracts between the gateway and remote tool providers:
// what a provider advertises, what we send it, and the untyped envelope it returns.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Descriptor is one tool advertised by a provider. Fetched per session, never cached.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// InvocationRequest names the tool to call and its arguments.
type InvocationRequest struct {
	ToolName   string
	Parameters map[string]any
}

// Session is an open, initialized connection to one provider.
// A session serves exactly one logical request and is closed afterwards.
type Session interface {
	// ListTools returns the advertised tools in provider order.
	ListTools(ctx context.Context) ([]Descriptor, error)
	// Invoke calls a tool. Any failure, including a result the provider flags
	// as an error, returns *InvocationError.
	Invoke(ctx context.Context, req InvocationRequest) (*RawResult, error)
	Close() error
}

// Connector opens sessions against provider endpoints.
type Connector interface {
	Open(ctx context.Context, endpoint string) (Session, error)
}

// ConnectionError reports that a session could not be established or lost its transport.
type ConnectionError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// InvocationError reports that the provider rejected or failed a tool call.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("call tool %q: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is (or wraps) a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsInvocationError reports whether err is (or wraps) an *InvocationError.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// WithSession opens a session, runs fn, and always closes the session afterwards.
// A Close failure is returned only when fn succeeded.
func WithSession(ctx context.Context, c Connector, endpoint string, fn func(Session) error) (err error) {
	s, err := c.Open(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = &ConnectionError{Endpoint: endpoint, Op: "close", Err: cerr}
		}
	}()
	return fn(s)
}
