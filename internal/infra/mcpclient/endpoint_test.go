package mcpclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint(t *testing.T) {
	t.Parallel()

	got, err := Endpoint("https://server.example/mcp", "abc 123")
	require.NoError(t, err)
	assert.Equal(t, "https://server.example/mcp?api_key=abc+123", got)

	got, err = Endpoint("https://server.example/mcp?profile=p1", "k")
	require.NoError(t, err)
	assert.Equal(t, "https://server.example/mcp?api_key=k&profile=p1", got)

	got, err = Endpoint("http://localhost:9000/mcp", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/mcp", got)

	_, err = Endpoint("ftp://server.example", "k")
	assert.Error(t, err)

	_, err = Endpoint("://bad", "k")
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://s.example/mcp?api_key=REDACTED", Redact("https://s.example/mcp?api_key=secret"))
	assert.Equal(t, "https://s.example/mcp", Redact("https://s.example/mcp"))
	assert.Equal(t, "secret", apiKeyOf("https://s.example/mcp?api_key=secret"))
}

func TestRedactErr(t *testing.T) {
	t.Parallel()

	cause := errors.New(`Post "https://s.example/mcp?api_key=s%2Fk": refused (s/k)`)
	err := redactErr(cause, "s/k")
	assert.Equal(t, `Post "https://s.example/mcp?api_key=REDACTED": refused (REDACTED)`, err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Same(t, cause, redactErr(cause, ""))
	assert.NoError(t, redactErr(nil, "x"))
}
