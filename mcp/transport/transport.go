// Package transport defines the JSON-RPC 2.0 envelope types and the
// transport contract used by the MCP client.
package transport

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ProtocolVersion is the JSON-RPC version sent with every request.
const ProtocolVersion = "2.0"

// Method names understood by MCP tool servers.
const (
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"
)

// RequestID identifies a request within one client session. IDs are
// assigned monotonically by the client.
type RequestID int64

// Request is an outgoing JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request with marshaled params.
func NewRequest(id RequestID, method string, params any) (*Request, error) {
	var raw json.RawMessage
	if params != nil {
		bs, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal params")
		}
		raw = bs
	}
	return &Request{
		JSONRPC: ProtocolVersion,
		ID:      id,
		Method:  method,
		Params:  raw,
	}, nil
}

// ErrorObject is the error member of a JSON-RPC response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is an incoming JSON-RPC response. Exactly one of Result and
// Error is populated by a conformant server. ID is a pointer so that a
// response lacking the member entirely can be told apart from id 0.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Err returns the RPC-level error carried by the response, if any.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return errors.Errorf("RPC error %d: %s", r.Error.Code, r.Error.Message)
}

// Matches reports whether the response correlates with the given request
// id. In permissive mode a response carrying no id at all is accepted;
// some non-conformant servers omit it.
func (r *Response) Matches(id RequestID, strict bool) bool {
	if r.ID == nil {
		return !strict
	}
	return *r.ID == id
}

// Transport issues one JSON-RPC call and returns the correlated response.
type Transport interface {
	Call(ctx context.Context, req *Request) (*Response, error)
	Close() error
}
