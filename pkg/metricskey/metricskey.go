package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsModelCallsSucceeded is base for counter metric for model calls succeeded
	StatsModelCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_calls_succeeded",
		Help:         "stats_model_calls_succeeded provides total model calls succeeded",
		RequiredTags: []string{"model"},
	}

	StatsModelCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_calls_failed",
		Help:         "stats_model_calls_failed provides total model calls failed",
		RequiredTags: []string{"model"},
	}

	StatsModelFailovers = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_failovers",
		Help:         "stats_model_failovers provides total rate-limit failovers per model",
		RequiredTags: []string{"model"},
	}

	StatsModelsExhausted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_models_exhausted",
		Help:         "stats_models_exhausted provides total requests that exhausted all models",
		RequiredTags: []string{"reason"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolDiscoveryFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_discovery_failed",
		Help:         "stats_tool_discovery_failed provides total tool discovery failures",
		RequiredTags: []string{"endpoint"},
	}

	StatsConversationsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_conversations_succeeded",
		Help:         "stats_conversations_succeeded provides total conversations completed",
		RequiredTags: []string{"phase"},
	}

	StatsConversationsFallback = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_conversations_fallback",
		Help:         "stats_conversations_fallback provides total conversations ended with the fallback reply",
		RequiredTags: []string{"reason"},
	}
)

// Perf
var (
	PerfModelCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_model_call",
		Help:         "perf_model_call provides duration of model call",
		RequiredTags: []string{"model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfConversation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_conversation",
		Help:         "perf_conversation provides duration of one conversation turn",
		RequiredTags: []string{"outcome"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfConversation,
	&PerfModelCall,
	&PerfToolCall,
	&StatsConversationsFallback,
	&StatsConversationsSucceeded,
	&StatsModelCallsFailed,
	&StatsModelCallsSucceeded,
	&StatsModelFailovers,
	&StatsModelsExhausted,
	&StatsToolCallsFailed,
	&StatsToolCallsSucceeded,
	&StatsToolDiscoveryFailed,
}
