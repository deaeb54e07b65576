package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	closed   int
	closeErr error
}

func (s *fakeSession) ListTools(context.Context) ([]Descriptor, error) {
	return descriptors("search"), nil
}

func (s *fakeSession) Invoke(context.Context, InvocationRequest) (*RawResult, error) {
	return LegacyText("ok"), nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

type fakeConnector struct {
	session *fakeSession
	err     error
}

func (c *fakeConnector) Open(context.Context, string) (Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func TestWithSession_ClosesOnSuccess(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	err := WithSession(context.Background(), &fakeConnector{session: s}, "http://p", func(Session) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.closed)
}

func TestWithSession_ClosesOnError(t *testing.T) {
	t.Parallel()

	s := &fakeSession{closeErr: errors.New("close failed")}
	boom := errors.New("boom")
	err := WithSession(context.Background(), &fakeConnector{session: s}, "http://p", func(Session) error {
		return boom
	})
	assert.ErrorIs(t, err, boom, "fn error wins over close error")
	assert.Equal(t, 1, s.closed)
}

func TestWithSession_ClosesOnPanic(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	assert.Panics(t, func() {
		_ = WithSession(context.Background(), &fakeConnector{session: s}, "http://p", func(Session) error {
			panic("bug")
		})
	})
	assert.Equal(t, 1, s.closed)
}

func TestWithSession_CloseErrorSurfaces(t *testing.T) {
	t.Parallel()

	s := &fakeSession{closeErr: errors.New("reset")}
	err := WithSession(context.Background(), &fakeConnector{session: s}, "http://p", func(Session) error {
		return nil
	})
	assert.True(t, IsConnectionError(err))
}

func TestWithSession_OpenFailure(t *testing.T) {
	t.Parallel()

	openErr := &ConnectionError{Endpoint: "http://p", Op: "connect", Err: errors.New("refused")}
	called := false
	err := WithSession(context.Background(), &fakeConnector{err: openErr}, "http://p", func(Session) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, IsConnectionError(err))
	assert.False(t, IsInvocationError(err))
	assert.EqualError(t, err, "connect http://p: refused")
}

func TestInvocationError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("rate limited")
	err := error(&InvocationError{Tool: "search", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsInvocationError(err))
	assert.EqualError(t, err, `call tool "search": rate limited`)
}

func TestRawResult_First(t *testing.T) {
	t.Parallel()

	item, ok := Sequence(TextItem("a"), TextItem("b")).First()
	require.True(t, ok)
	assert.Equal(t, "a", item.Text)

	item, ok = Single(TextItem("only")).First()
	require.True(t, ok)
	assert.Equal(t, "only", item.Text)

	item, ok = LegacyText("https://img").First()
	require.True(t, ok)
	assert.True(t, item.HasText)
	assert.Equal(t, "https://img", item.Text)

	assert.True(t, (&RawResult{}).Empty())
	assert.True(t, Sequence().Empty())
	assert.True(t, LegacyText("").Empty())
	var nilResult *RawResult
	assert.True(t, nilResult.Empty())
}

func TestItem_String(t *testing.T) {
	t.Parallel()

	assert.JSONEq(t, `{"type":"text","text":"x"}`, TextItem("x").String())
	assert.Equal(t, "<audio>", Item{Type: "audio"}.String())
	assert.Equal(t, "<empty>", Item{}.String())
	assert.Equal(t, "sequence", ShapeSequence.String())
	assert.Equal(t, "absent", ShapeAbsent.String())
}
