package router

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/tidwall/sjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatrouter", "router")

// Descriptor identifies one backend model. Lower priority is tried first.
type Descriptor struct {
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`
}

// Caller submits one chat request body and returns the raw response body.
type Caller interface {
	Do(ctx context.Context, body []byte) ([]byte, error)
}

// Router iterates models in priority order, serializing every attempt
// through the queue. A rate-limited attempt advances to the next model;
// any other failure aborts immediately.
type Router struct {
	models   []Descriptor
	queue    *Queue
	caller   Caller
	classify Classifier
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithQueue injects a shared queue; by default the router owns one with
// the default spacing.
func WithQueue(q *Queue) RouterOption {
	return func(r *Router) {
		r.queue = q
	}
}

// WithClassifier replaces the rate-limit predicate.
func WithClassifier(c Classifier) RouterOption {
	return func(r *Router) {
		r.classify = c
	}
}

// New returns a router over the given models, sorted by priority.
func New(caller Caller, models []Descriptor, opts ...RouterOption) *Router {
	sorted := make([]Descriptor, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	r := &Router{
		models:   sorted,
		caller:   caller,
		classify: DefaultClassifier,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.queue == nil {
		r.queue = NewQueue(DefaultMinInterval)
	}
	return r
}

// Models returns the routed models in attempt order.
func (r *Router) Models() []Descriptor {
	return r.models
}

// Do submits the request body, sans model field, injecting each model
// name in turn until one succeeds or the list is exhausted.
func (r *Router) Do(ctx context.Context, body []byte) ([]byte, error) {
	if len(r.models) == 0 {
		return nil, errors.New("no models configured")
	}

	var lastErr error
	for _, m := range r.models {
		attempt, err := sjson.SetBytes(body, "model", m.Name)
		if err != nil {
			return nil, errors.Wrap(err, "failed to inject model name")
		}

		var out []byte
		started := time.Now()
		err = r.queue.Enqueue(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = r.caller.Do(ctx, attempt)
			return callErr
		})
		metricskey.PerfModelCall.MeasureSince(started, m.Name)

		if err == nil {
			metricskey.StatsModelCallsSucceeded.IncrCounter(1, m.Name)
			return out, nil
		}

		metricskey.StatsModelCallsFailed.IncrCounter(1, m.Name)
		if !r.classify(err) {
			return nil, errors.WithMessagef(err, "model %s failed", m.Name)
		}

		metricskey.StatsModelFailovers.IncrCounter(1, m.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "rate_limited",
			"model", m.Name,
			"err", err.Error(),
		)
		lastErr = err
	}

	metricskey.StatsModelsExhausted.IncrCounter(1, "rate_limited")
	return nil, errors.WithMessagef(lastErr, "all %d models rate limited", len(r.models))
}
