// Package sse implements the session MCP transport: one long-lived
// event stream is opened with a connect handshake and reused for all
// calls, with messages posted to the session endpoint announced by the
// server.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/mcp/transport"
	ssestream "github.com/effective-security/chatrouter/pkg/sse"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter/mcp/transport", "sse")

// DefaultConnectTimeout bounds the connect handshake.
const DefaultConnectTimeout = 30 * time.Second

// ErrSessionClosed is returned for calls whose session went away before
// the response arrived.
var ErrSessionClosed = errors.New("session closed")

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport is a session MCP transport. The session is established on
// first use and re-established on demand when it is not currently open.
type Transport struct {
	endpoint       string
	httpClient     Doer
	strict         bool
	connectTimeout time.Duration

	mu   sync.Mutex
	sess *session
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

// WithConnectTimeout overrides the handshake timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.connectTimeout = d
	}
}

// New returns a session transport for the given stream endpoint.
func New(endpoint string, opts ...Option) *Transport {
	t := &Transport{
		endpoint:       endpoint,
		httpClient:     http.DefaultClient,
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// session is one established stream. A missing session handle on the
// transport means disconnected; there is no separate reconnect state.
type session struct {
	messageURL string
	cancel     context.CancelFunc

	mu      sync.Mutex
	pending map[transport.RequestID]chan *transport.Response
	order   []transport.RequestID
	closed  bool
}

// Call implements transport.Transport.
func (t *Transport) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	sess, err := t.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := sess.register(req.ID)
	if err != nil {
		return nil, err
	}
	defer sess.unregister(req.ID)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sess.messageURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.drop(sess)
		return nil, errors.Wrap(err, "failed to send message")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.drop(sess)
		return nil, errors.Errorf("tool server rejected message with status %d", resp.StatusCode)
	}

	select {
	case rpcResp, ok := <-ch:
		if !ok {
			return nil, errors.WithStack(ErrSessionClosed)
		}
		return rpcResp, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "request %d abandoned", req.ID)
	}
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	sess := t.sess
	t.sess = nil
	t.mu.Unlock()
	if sess != nil {
		sess.teardown()
	}
	return nil
}

func (t *Transport) ensureSession(ctx context.Context) (*session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != nil {
		return t.sess, nil
	}

	sess, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	t.sess = sess
	return sess, nil
}

// drop forgets the session so the next call reconnects.
func (t *Transport) drop(sess *session) {
	t.mu.Lock()
	if t.sess == sess {
		t.sess = nil
	}
	t.mu.Unlock()
	sess.teardown()
}

// connect performs the handshake: open the stream, wait for the server
// to announce the message endpoint. The handshake races its own timeout.
func (t *Transport) connect(ctx context.Context) (*session, error) {
	streamCtx, cancel := context.WithCancel(context.Background())

	type result struct {
		sess *session
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		sess, err := t.handshake(ctx, streamCtx, cancel)
		ch <- result{sess: sess, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			cancel()
			return nil, res.err
		}
		return res.sess, nil
	case <-time.After(t.connectTimeout):
		cancel()
		return nil, errors.Errorf("connect handshake timed out after %v", t.connectTimeout)
	case <-ctx.Done():
		cancel()
		return nil, errors.Wrap(ctx.Err(), "connect abandoned")
	}
}

func (t *Transport) handshake(ctx context.Context, streamCtx context.Context, cancel context.CancelFunc) (*session, error) {
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stream")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.Errorf("tool server returned status %d", resp.StatusCode)
	}

	dec := ssestream.NewDecoder(resp.Body)

	// The first event announces the message endpoint for this session.
	ev, err := dec.Next()
	if err != nil {
		_ = resp.Body.Close()
		return nil, errors.Wrap(err, "stream closed before endpoint event")
	}
	messageURL, err := t.resolveEndpoint(string(ev.Data))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	sess := &session{
		messageURL: messageURL,
		cancel:     cancel,
		pending:    make(map[transport.RequestID]chan *transport.Response),
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "session_established",
		"endpoint", t.endpoint,
		"message_url", messageURL,
	)

	go t.readLoop(sess, dec, resp.Body)
	return sess, nil
}

// resolveEndpoint resolves the announced message path against the stream
// endpoint. Servers send either an absolute URL or a path like
// "/messages?session=<id>".
func (t *Transport) resolveEndpoint(announced string) (string, error) {
	base, err := url.Parse(t.endpoint)
	if err != nil {
		return "", errors.Wrap(err, "invalid endpoint")
	}
	ref, err := url.Parse(announced)
	if err != nil {
		return "", errors.Wrapf(err, "invalid endpoint event payload: %s", announced)
	}
	return base.ResolveReference(ref).String(), nil
}

// readLoop dispatches stream events to pending calls until the stream
// ends. A broken stream surfaces to callers as ErrSessionClosed.
func (t *Transport) readLoop(sess *session, dec *ssestream.Decoder, body io.Closer) {
	defer func() {
		_ = body.Close()
		t.drop(sess)
	}()

	for {
		ev, err := dec.Next()
		if err != nil {
			if err != io.EOF {
				logger.KV(xlog.WARNING, "status", "stream_read_failed", "err", err.Error())
			}
			return
		}
		if ev.Raw {
			continue
		}
		var rpcResp transport.Response
		if err := json.Unmarshal(ev.Data, &rpcResp); err != nil {
			logger.KV(xlog.DEBUG, "status", "skipping_undecodable_frame", "err", err.Error())
			continue
		}
		sess.deliver(&rpcResp, t.strict)
	}
}

func (s *session) register(id transport.RequestID) (chan *transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.WithStack(ErrSessionClosed)
	}
	ch := make(chan *transport.Response, 1)
	s.pending[id] = ch
	s.order = append(s.order, id)
	return ch, nil
}

func (s *session) unregister(id transport.RequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// deliver routes a response to its pending call by id. In permissive
// mode a response without an id goes to the oldest pending call.
func (s *session) deliver(resp *transport.Response, strict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id transport.RequestID
	if resp.ID != nil {
		id = *resp.ID
	} else {
		if strict || len(s.order) == 0 {
			return
		}
		id = s.order[0]
	}

	ch := s.pending[id]
	if ch == nil {
		// Late response for an abandoned call; discard.
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

func (s *session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.order = nil
}
