package chat

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter", "chat")

const completionsPath = "/chat/completions"

// StatusError is a non-2xx reply from the chat API. The body is kept so
// the failover layer can classify rate-limit signals.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256]
	}
	return errors.Errorf("chat API returned status %d: %s", e.Code, string(body)).Error()
}

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts chat completion requests with bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient Doer
}

// Option is an option for the chat client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client Doer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient returns a chat client for the given API base URL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do posts a raw request body and returns the raw response body. Non-2xx
// replies become *StatusError so callers can classify the failure.
func (c *Client) Do(ctx context.Context, body []byte) ([]byte, error) {
	u := c.baseURL + completionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	logger.ContextKV(ctx, xlog.DEBUG, "url", u, "body_size", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WithStack(&StatusError{Code: resp.StatusCode, Body: respBody})
	}
	return respBody, nil
}
