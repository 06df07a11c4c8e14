// Package tools defines the contract for tools served in-process,
// alongside the remote catalog.
package tools

import (
	"context"
)

// ITool is a tool the conversation engine can invoke locally.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function,
	// to be used in the tool declaration.
	Parameters() any

	// Call invokes the tool with a JSON argument payload and returns the
	// result to feed back to the model.
	Call(ctx context.Context, input string) (string, error)
}

// Tool is a typed tool with a request and response shape.
type Tool[I any, O any] interface {
	ITool
	Run(ctx context.Context, req *I) (*O, error)
}
