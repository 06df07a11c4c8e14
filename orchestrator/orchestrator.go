// Package orchestrator drives one conversation turn: it discovers and
// narrows tools, routes the user message through the model failover
// router, executes at most one requested tool invocation, and returns
// the final text.
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/mcp"
	"github.com/effective-security/chatrouter/pkg/chat"
	"github.com/effective-security/chatrouter/pkg/llmutils"
	"github.com/effective-security/chatrouter/pkg/metricskey"
	"github.com/effective-security/chatrouter/toolselect"
	"github.com/effective-security/chatrouter/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter", "orchestrator")

const (
	// DefaultOuterTimeout bounds the whole turn, independent of the
	// per-call timeouts below it.
	DefaultOuterTimeout = 60 * time.Second
	// DefaultTemperature is used for both model passes.
	DefaultTemperature = 0.7
	// DefaultSystemPrompt is the fixed preamble of every turn.
	DefaultSystemPrompt = "You are a helpful assistant. Use the available tools when they help you answer."
)

// DefaultFallbackReply is returned for every fatal failure and for the
// outer timeout. Internal error text never reaches the end user.
const DefaultFallbackReply = "Sorry, I ran into a problem answering that. Please try again in a moment."

// ToolService discovers and invokes remote tools. *mcp.Client satisfies it.
type ToolService interface {
	ListTools(ctx context.Context) *mcp.Catalog
	CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error)
}

// ModelRouter submits a chat request body, sans model field, to the
// model list. *router.Router satisfies it.
type ModelRouter interface {
	Do(ctx context.Context, body []byte) ([]byte, error)
}

// Orchestrator is the top-level entry point. Stateless across turns:
// one user utterance in, one reply out.
type Orchestrator struct {
	router       ModelRouter
	toolsvc      ToolService
	policy       *toolselect.Policy
	local        map[string]tools.ITool
	localOrder   []string
	outerTimeout time.Duration
	temperature  float64
	systemPrompt string
	fallback     string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithToolService attaches the remote tool service. Without it the model
// runs with local tools only, or none.
func WithToolService(svc ToolService) Option {
	return func(o *Orchestrator) {
		o.toolsvc = svc
	}
}

// WithLocalTools registers tools served in-process. They are declared to
// the model ahead of the remote catalog and dispatched without the
// protocol client.
func WithLocalTools(list ...tools.ITool) Option {
	return func(o *Orchestrator) {
		for _, t := range list {
			key := strings.ToLower(t.Name())
			if _, ok := o.local[key]; ok {
				continue
			}
			o.local[key] = t
			o.localOrder = append(o.localOrder, key)
		}
	}
}

// WithSelectorPolicy overrides the tool-selection policy.
func WithSelectorPolicy(p *toolselect.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithOuterTimeout overrides the turn budget.
func WithOuterTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.outerTimeout = d
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) {
		o.temperature = t
	}
}

// WithSystemPrompt overrides the system preamble.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithFallbackReply overrides the user-facing fallback string.
func WithFallbackReply(reply string) Option {
	return func(o *Orchestrator) {
		o.fallback = reply
	}
}

// New creates an orchestrator over the given model router.
func New(router ModelRouter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:       router,
		policy:       toolselect.DefaultPolicy(),
		local:        make(map[string]tools.ITool),
		outerTimeout: DefaultOuterTimeout,
		temperature:  DefaultTemperature,
		systemPrompt: DefaultSystemPrompt,
		fallback:     DefaultFallbackReply,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reply answers one user utterance. It always returns within the outer
// budget: any fatal failure or timeout yields the fallback reply, never
// an error or raw internal text.
func (o *Orchestrator) Reply(ctx context.Context, utterance string) string {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.outerTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		text, err := o.run(ctx, utterance)
		ch <- outcome{text: text, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			metricskey.PerfConversation.MeasureSince(started, "fallback")
			metricskey.StatsConversationsFallback.IncrCounter(1, "error")
			logger.ContextKV(ctx, xlog.ERROR,
				"status", "conversation_failed",
				"err", res.err.Error(),
			)
			return o.fallback
		}
		metricskey.PerfConversation.MeasureSince(started, "final")
		return res.text
	case <-ctx.Done():
		metricskey.PerfConversation.MeasureSince(started, "fallback")
		metricskey.StatsConversationsFallback.IncrCounter(1, "timeout")
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "conversation_timeout",
			"budget", o.outerTimeout.String(),
		)
		return o.fallback
	}
}

// run executes the two-phase turn.
func (o *Orchestrator) run(ctx context.Context, utterance string) (string, error) {
	decls := o.collectTools(ctx, utterance)

	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: o.systemPrompt},
		{Role: chat.RoleUser, Content: utterance},
	}

	resp, err := o.route(ctx, chat.Request{
		Messages:    messages,
		Temperature: o.temperature,
		Tools:       decls,
	})
	if err != nil {
		return "", err
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		metricskey.StatsConversationsSucceeded.IncrCounter(1, "direct")
		return strings.TrimSpace(msg.Content), nil
	}

	// The model asked for a tool. Run it, then resubmit the exchange
	// with the result as a synthetic turn. Tool failures are reported to
	// the model, not to the end user.
	tc := msg.ToolCalls[0]
	result := o.invokeTool(ctx, tc)

	messages = append(messages,
		chat.Message{
			Role:      chat.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: []chat.ToolCall{tc},
		},
		chat.Message{
			Role:       chat.RoleTool,
			Content:    result,
			ToolCallID: tc.ID,
		},
	)

	// No tool declarations on the second pass: the turn is two phases at
	// most.
	resp, err = o.route(ctx, chat.Request{
		Messages:    messages,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", err
	}

	metricskey.StatsConversationsSucceeded.IncrCounter(1, "tool")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *Orchestrator) route(ctx context.Context, req chat.Request) (*chat.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chat request")
	}
	respBody, err := o.router.Do(ctx, body)
	if err != nil {
		return nil, err
	}
	return chat.ParseResponse(respBody)
}

// collectTools builds the tool declarations for the first pass: local
// tools with their real parameter schemas, then the narrowed and
// simplified remote catalog.
func (o *Orchestrator) collectTools(ctx context.Context, utterance string) []chat.Tool {
	var decls []chat.Tool
	for _, key := range o.localOrder {
		t := o.local[key]
		decls = append(decls, chat.NewFunctionTool(&chat.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}))
	}

	if o.toolsvc == nil {
		return decls
	}

	catalog := o.toolsvc.ListTools(ctx)
	if catalog.Len() == 0 {
		return decls
	}

	categories := o.policy.SelectCategories(utterance)
	filtered := o.policy.FilterTools(catalog, categories)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tools_selected",
		"catalog", catalog.Len(),
		"selected", len(filtered),
		"categories", categories,
	)

	for _, decl := range toolselect.Simplify(filtered) {
		if _, ok := o.local[strings.ToLower(decl.Function.Name)]; ok {
			continue
		}
		decls = append(decls, decl)
	}
	return decls
}

// invokeTool dispatches the model-requested call and returns the payload
// for the synthetic tool turn. Failures become a structured error
// payload for the model to react to.
func (o *Orchestrator) invokeTool(ctx context.Context, tc chat.ToolCall) string {
	name := tc.Function.Name

	if local, ok := o.local[strings.ToLower(name)]; ok {
		res, err := local.Call(ctx, tc.Function.Arguments)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "local_tool_failed",
				"tool", name,
				"err", err.Error(),
			)
			return toolErrorPayload(err)
		}
		return res
	}

	if o.toolsvc == nil {
		return toolErrorPayload(errors.Errorf("tool %s is not available", name))
	}

	args, err := llmutils.ParseToolArguments(tc.Function.Arguments)
	if err != nil {
		return toolErrorPayload(err)
	}

	raw, err := o.toolsvc.CallTool(ctx, name, args)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool", name,
			"err", err.Error(),
		)
		return toolErrorPayload(err)
	}
	return string(raw)
}

func toolErrorPayload(err error) string {
	return llmutils.ToJSON(map[string]string{
		"error": err.Error(),
	})
}
