// Package mcp implements the client side of the MCP tool protocol:
// tool discovery and tool invocation over JSON-RPC, with a per-call
// timeout and a choice of session or per-request transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/mcp/transport"
	ssetransport "github.com/effective-security/chatrouter/mcp/transport/sse"
	"github.com/effective-security/chatrouter/mcp/transport/streamable"
	"github.com/effective-security/chatrouter/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter", "mcp")

// DefaultCallTimeout bounds every connect, discovery and invocation call.
const DefaultCallTimeout = 30 * time.Second

// Mode selects the transport strategy.
type Mode string

const (
	// ModeAuto infers the transport from the endpoint URL shape.
	ModeAuto Mode = ""
	// ModeSession uses one long-lived event-stream session.
	ModeSession Mode = "sse"
	// ModeStreamable issues an independent POST per call.
	ModeStreamable Mode = "streamable"
)

// ToolCallError is the typed failure of a tool invocation. Unlike
// discovery failures it is meaningful to the caller: the orchestration
// layer reports it back to the model as a tool-error result.
type ToolCallError struct {
	Tool    string
	Code    int
	Message string
}

func (e *ToolCallError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tool %s failed with code %d: %s", e.Tool, e.Code, e.Message)
	}
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// Client discovers and invokes remote tools. The transport mode is
// chosen once at construction.
type Client struct {
	endpoint    string
	tr          transport.Transport
	callTimeout time.Duration
	nextID      atomic.Int64
}

type clientOptions struct {
	mode        Mode
	tr          transport.Transport
	httpClient  *http.Client
	strict      bool
	callTimeout time.Duration
}

// Option configures the client.
type Option func(*clientOptions)

// WithMode forces the transport strategy; explicit configuration wins
// over URL-shape detection.
func WithMode(mode Mode) Option {
	return func(o *clientOptions) {
		o.mode = mode
	}
}

// WithTransport injects a transport directly, mostly for tests.
func WithTransport(tr transport.Transport) Option {
	return func(o *clientOptions) {
		o.tr = tr
	}
}

// WithHTTPClient overrides the HTTP client of the constructed transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithStrictIDMatching disables the permissive fallback that accepts a
// response carrying no id.
func WithStrictIDMatching(strict bool) Option {
	return func(o *clientOptions) {
		o.strict = strict
	}
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.callTimeout = d
	}
}

// NewClient creates a client for the given tool-server endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	o := &clientOptions{
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	tr := o.tr
	if tr == nil {
		mode := o.mode
		if mode == ModeAuto {
			var err error
			mode, err = detectMode(endpoint)
			if err != nil {
				return nil, err
			}
		}
		switch mode {
		case ModeSession:
			var topts []ssetransport.Option
			if o.httpClient != nil {
				topts = append(topts, ssetransport.WithHTTPClient(o.httpClient))
			}
			topts = append(topts, ssetransport.WithStrictIDMatching(o.strict))
			tr = ssetransport.New(endpoint, topts...)
		case ModeStreamable:
			var topts []streamable.Option
			if o.httpClient != nil {
				topts = append(topts, streamable.WithHTTPClient(o.httpClient))
			}
			topts = append(topts, streamable.WithStrictIDMatching(o.strict))
			tr = streamable.New(endpoint, topts...)
		default:
			return nil, errors.Errorf("unsupported transport mode: %s", mode)
		}
	}

	return &Client{
		endpoint:    endpoint,
		tr:          tr,
		callTimeout: o.callTimeout,
	}, nil
}

// detectMode infers the transport from the URL shape: a path fragment
// suggesting a streaming-session endpoint selects the session transport.
func detectMode(endpoint string) (Mode, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ModeAuto, errors.Wrapf(err, "invalid tool server endpoint: %s", endpoint)
	}
	if strings.Contains(strings.ToLower(u.Path), "sse") {
		return ModeSession, nil
	}
	return ModeStreamable, nil
}

// ListTools fetches the tool catalog. Discovery failure is degradable:
// any error yields an empty catalog so the conversation proceeds without
// tool augmentation.
func (c *Client) ListTools(ctx context.Context) *Catalog {
	resp, err := c.call(ctx, transport.MethodListTools, struct{}{})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		metricskey.StatsToolDiscoveryFailed.IncrCounter(1, c.endpoint)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_discovery_failed",
			"endpoint", c.endpoint,
			"err", err.Error(),
		)
		return NewCatalog()
	}

	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		metricskey.StatsToolDiscoveryFailed.IncrCounter(1, c.endpoint)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_discovery_malformed",
			"endpoint", c.endpoint,
			"err", err.Error(),
		)
		return NewCatalog()
	}

	catalog := NewCatalog(result.Tools...)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tools_discovered",
		"endpoint", c.endpoint,
		"count", catalog.Len(),
	)
	return catalog
}

// CallTool invokes a remote tool. The result payload is opaque and
// forwarded verbatim; failures are typed so they can be surfaced to the
// model rather than swallowed.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error) {
	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, name)

	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}
	resp, err := c.call(ctx, transport.MethodCallTool, params)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		return nil, &ToolCallError{Tool: name, Message: err.Error()}
	}
	if resp.Error != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		return nil, &ToolCallError{Tool: name, Code: resp.Error.Code, Message: resp.Error.Message}
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	return resp.Result, nil
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.tr.Close()
}

// call races the transport against the per-call timeout. The loser is
// abandoned: its context is cancelled and any late result discarded, so
// every request has exactly one terminal outcome.
func (c *Client) call(ctx context.Context, method string, params any) (*transport.Response, error) {
	id := transport.RequestID(c.nextID.Add(1))
	req, err := transport.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		resp *transport.Response
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, err := c.tr.Call(callCtx, req)
		ch <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-ch:
		return o.resp, o.err
	case <-time.After(c.callTimeout):
		return nil, errors.Errorf("%s request %d timed out after %v", method, id, c.callTimeout)
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "%s request %d abandoned", method, id)
	}
}
