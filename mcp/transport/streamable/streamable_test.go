package streamable_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/chatrouter/mcp/transport"
	"github.com/effective-security/chatrouter/mcp/transport/streamable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Streamable_EventStreamResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req transport.Request
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, transport.MethodListTools, req.Method)

		w.Header().Set("Content-Type", "text/event-stream")
		// A keep-alive text frame and an unrelated response precede the
		// real one; both must be skipped.
		_, _ = io.WriteString(w, "data: processing\n\n")
		_, _ = io.WriteString(w, `data: {"jsonrpc":"2.0","id":99,"result":{}}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`+"\n\n")
	}))
	defer srv.Close()

	tr := streamable.New(srv.URL)
	req, err := transport.NewRequest(1, transport.MethodListTools, struct{}{})
	require.NoError(t, err)

	resp, err := tr.Call(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.ID)
	assert.Equal(t, transport.RequestID(1), *resp.ID)
	assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))
}

func Test_Streamable_JSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`)
	}))
	defer srv.Close()

	tr := streamable.New(srv.URL)
	req, err := transport.NewRequest(1, transport.MethodCallTool, nil)
	require.NoError(t, err)

	resp, err := tr.Call(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
}

func Test_Streamable_GetFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		require.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, transport.MethodListTools, r.URL.Query().Get("method"))
		assert.Equal(t, "1", r.URL.Query().Get("id"))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`+"\n\n")
	}))
	defer srv.Close()

	tr := streamable.New(srv.URL)
	req, err := transport.NewRequest(1, transport.MethodListTools, struct{}{})
	require.NoError(t, err)

	resp, err := tr.Call(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))
}

func Test_Streamable_PermissiveMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"jsonrpc":"2.0","result":{"tools":[]}}`+"\n\n")
	}))
	defer srv.Close()

	req, err := transport.NewRequest(1, transport.MethodListTools, nil)
	require.NoError(t, err)

	// Permissive by default: the id-less response is accepted.
	tr := streamable.New(srv.URL)
	resp, err := tr.Call(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))

	// Strict mode rejects it and runs off the end of the stream.
	strictTr := streamable.New(srv.URL, streamable.WithStrictIDMatching(true))
	_, err = strictTr.Call(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream ended without matching response")
}

func Test_Streamable_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer srv.Close()

	tr := streamable.New(srv.URL)
	req, err := transport.NewRequest(1, transport.MethodListTools, nil)
	require.NoError(t, err)

	_, err = tr.Call(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
