package router

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/pkg/chat"
	"github.com/tidwall/gjson"
)

// Classifier reports whether a model-call failure is a rate-limit
// signal, i.e. worth retrying on the next model. Anything else is fatal
// for the whole request. Backends do not expose a well-specified
// contract for this, so the predicate is pluggable.
type Classifier func(err error) bool

// rateLimitCodes are vendor-specific error codes meaning "too many
// concurrent calls".
var rateLimitCodes = map[string]bool{
	"429":   true,
	"50603": true,
}

// rateLimitPhrases are free-text markers seen in rate-limit error bodies.
var rateLimitPhrases = []string{
	"rate limit",
	"rate limited",
	"concurrent",
	"too many requests",
	"429",
	"限流",
}

// DefaultClassifier checks the HTTP status, probes the error body for a
// vendor error code, and falls back to substring matching on the error
// text.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *chat.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusTooManyRequests {
			return true
		}
		code := gjson.GetBytes(statusErr.Body, "error.code")
		if code.Exists() && rateLimitCodes[code.String()] {
			return true
		}
		msg := gjson.GetBytes(statusErr.Body, "error.message")
		if containsRateLimitPhrase(msg.String()) {
			return true
		}
	}

	return containsRateLimitPhrase(err.Error())
}

func containsRateLimitPhrase(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
