// Package chat defines the OpenAI-compatible chat-completion envelope
// and a minimal HTTP client for it.
package chat

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Role of a chat message.
type Role string

const (
	// RoleSystem is the system preamble.
	RoleSystem Role = "system"
	// RoleUser is the end-user utterance.
	RoleUser Role = "user"
	// RoleAssistant is a model reply.
	RoleAssistant Role = "assistant"
	// RoleTool is a tool result fed back to the model.
	RoleTool Role = "tool"
)

// ErrEmptyResponse is returned when the chat API returns no choices.
var ErrEmptyResponse = errors.New("empty response")

// FunctionCall is the name and arguments of a model-requested call.
// Arguments is a JSON string as emitted by the model.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is the model's request to invoke a tool.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// Message is one turn in the conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// FunctionDefinition declares a callable function to the model.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// Tool is a tool declaration attached to a chat request.
type Tool struct {
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function"`
}

// NewFunctionTool wraps a function definition in the declaration envelope.
func NewFunctionTool(fn *FunctionDefinition) Tool {
	return Tool{Type: "function", Function: fn}
}

// Request is a chat completion request. Model is left empty by the
// orchestration layer; the router injects it per attempt.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
}

// Choice is one returned completion.
type Choice struct {
	Message Message `json:"message"`
}

// APIError is the error member of a chat response body.
type APIError struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Code) > 0 {
		return fmt.Sprintf("chat API error %s: %s", string(e.Code), e.Message)
	}
	return "chat API error: " + e.Message
}

// Response is a chat completion response.
type Response struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// ParseResponse decodes a chat response body. An error payload or an
// empty choice list is an error. Tool calls missing an id get one
// synthesized, so tool results can always be correlated.
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode chat response")
	}
	if resp.Error != nil {
		return nil, errors.WithStack(resp.Error)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	for i := range resp.Choices {
		msg := &resp.Choices[i].Message
		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			if tc.ID == "" {
				tc.ID = uuid.NewString()
			}
			if tc.Type == "" {
				tc.Type = "function"
			}
		}
	}
	return &resp, nil
}
