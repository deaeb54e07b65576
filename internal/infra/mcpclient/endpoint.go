package mcpclient

import (
	"fmt"
	"net/url"
	"strings"
)

const apiKeyParam = "api_key"

// Endpoint appends the provider access credential to base as the api_key query parameter.
// Existing query parameters are preserved.
func Endpoint(base, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("mcpclient: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("mcpclient: endpoint %q must be http or https", base)
	}
	if apiKey != "" {
		q := u.Query()
		q.Set(apiKeyParam, apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Redact hides the api_key value of endpoint for logs and error messages.
func Redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if !q.Has(apiKeyParam) {
		return endpoint
	}
	q.Set(apiKeyParam, "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}

func apiKeyOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Query().Get(apiKeyParam)
}

// redactedError scrubs a secret from the wrapped error's message.
type redactedError struct {
	err    error
	secret string
}

func (e *redactedError) Error() string {
	msg := e.err.Error()
	if e.secret == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(e.secret), "REDACTED")
	return strings.ReplaceAll(msg, e.secret, "REDACTED")
}

func (e *redactedError) Unwrap() error { return e.err }

func redactErr(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	return &redactedError{err: err, secret: secret}
}
