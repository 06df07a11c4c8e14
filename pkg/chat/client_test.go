package chat_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/chatrouter/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Client_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"messages":[]}`, string(body))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	// Trailing slash is normalized.
	client := chat.NewClient(srv.URL+"/v1/", "test-token")
	out, err := client.Do(context.Background(), []byte(`{"messages":[]}`))
	require.NoError(t, err)

	resp, err := chat.ParseResponse(out)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
}

func Test_Client_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	client := chat.NewClient(srv.URL, "test-token")
	_, err := client.Do(context.Background(), []byte(`{}`))
	require.Error(t, err)

	var statusErr *chat.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Contains(t, string(statusErr.Body), "rate limit exceeded")
}

func Test_StatusError_TruncatesBody(t *testing.T) {
	body := make([]byte, 1024)
	for i := range body {
		body[i] = 'x'
	}
	err := &chat.StatusError{Code: 500, Body: body}
	assert.Less(t, len(err.Error()), 320)
}
