// Package streamable implements the stateless MCP transport: every call
// is an independent HTTP POST whose response body is a text/event-stream
// decoded until the correlated JSON-RPC response is found.
package streamable

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/mcp/transport"
	"github.com/effective-security/chatrouter/pkg/sse"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter/mcp/transport", "streamable")

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport is a per-request MCP transport. It holds no session state,
// so a single instance may serve any number of calls.
type Transport struct {
	endpoint   string
	httpClient Doer
	strict     bool
}

var _ transport.Transport = (*Transport)(nil)

// Option configures the transport.
type Option func(*Transport)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client Doer) Option {
	return func(t *Transport) {
		t.httpClient = client
	}
}

// WithStrictIDMatching disables the permissive fallback that accepts a
// response carrying no id.
func WithStrictIDMatching(strict bool) Option {
	return func(t *Transport) {
		t.strict = strict
	}
}

// New returns a transport posting to the given endpoint.
func New(endpoint string, opts ...Option) *Transport {
	t := &Transport{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call implements transport.Transport.
func (t *Transport) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		logger.ContextKV(ctx, xlog.DEBUG,
			"endpoint", t.endpoint,
			"status", resp.StatusCode,
			"fallback", "GET",
		)
		return t.callGet(ctx, req)
	}

	return t.decodeResponse(resp, req.ID)
}

// callGet re-encodes the call as query parameters. Some servers only
// accept GET on their streaming endpoint.
func (t *Transport) callGet(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid endpoint")
	}
	q := u.Query()
	q.Set("method", req.Method)
	q.Set("id", strconv.FormatInt(int64(req.ID), 10))
	if len(req.Params) > 0 {
		q.Set("params", string(req.Params))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	return t.decodeResponse(resp, req.ID)
}

func (t *Transport) decodeResponse(resp *http.Response, id transport.RequestID) (*transport.Response, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bs, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("tool server returned status %d: %s", resp.StatusCode, string(bs))
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "text/event-stream") {
		var rpcResp transport.Response
		if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
			return nil, errors.Wrap(err, "failed to decode response")
		}
		if !rpcResp.Matches(id, t.strict) {
			return nil, errors.Errorf("response id mismatch for request %d", id)
		}
		return &rpcResp, nil
	}

	dec := sse.NewDecoder(resp.Body)
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return nil, errors.Errorf("stream ended without matching response for request %d", id)
		}
		if err != nil {
			return nil, err
		}
		if ev.Raw {
			// Raw text frames belong to the plain-text streaming path,
			// not to tool calls.
			continue
		}
		var rpcResp transport.Response
		if err := json.Unmarshal(ev.Data, &rpcResp); err != nil {
			logger.KV(xlog.DEBUG, "status", "skipping_undecodable_frame", "err", err.Error())
			continue
		}
		if rpcResp.Matches(id, t.strict) {
			return &rpcResp, nil
		}
	}
}

// Close implements transport.Transport. The transport holds no state.
func (t *Transport) Close() error {
	return nil
}
