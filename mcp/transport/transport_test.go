package transport_test

import (
	"encoding/json"
	"testing"

	"github.com/effective-security/chatrouter/mcp/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewRequest(t *testing.T) {
	req, err := transport.NewRequest(7, transport.MethodCallTool, map[string]any{
		"name": "get_weather",
	})
	require.NoError(t, err)

	bs, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"jsonrpc": "2.0",
		"id": 7,
		"method": "tools/call",
		"params": {"name": "get_weather"}
	}`, string(bs))
}

func Test_Response_Matches(t *testing.T) {
	id := transport.RequestID(3)

	withID := &transport.Response{ID: &id}
	assert.True(t, withID.Matches(3, true))
	assert.True(t, withID.Matches(3, false))
	assert.False(t, withID.Matches(4, true))
	assert.False(t, withID.Matches(4, false))

	// A response without an id is accepted only in permissive mode.
	noID := &transport.Response{}
	assert.False(t, noID.Matches(3, true))
	assert.True(t, noID.Matches(3, false))
}

func Test_Response_Err(t *testing.T) {
	ok := &transport.Response{Result: []byte(`{}`)}
	assert.NoError(t, ok.Err())

	failed := &transport.Response{Error: &transport.ErrorObject{Code: -32601, Message: "method not found"}}
	err := failed.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}
