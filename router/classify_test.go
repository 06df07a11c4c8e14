package router_test

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/pkg/chat"
	"github.com/effective-security/chatrouter/router"
	"github.com/stretchr/testify/assert"
)

func Test_DefaultClassifier(t *testing.T) {
	tcases := []struct {
		name string
		err  error
		exp  bool
	}{
		{
			name: "nil",
			err:  nil,
			exp:  false,
		},
		{
			name: "status 429",
			err:  &chat.StatusError{Code: http.StatusTooManyRequests},
			exp:  true,
		},
		{
			name: "status 500 plain",
			err:  &chat.StatusError{Code: http.StatusInternalServerError, Body: []byte(`{"error":{"message":"internal"}}`)},
			exp:  false,
		},
		{
			name: "vendor code 50603",
			err:  &chat.StatusError{Code: http.StatusServiceUnavailable, Body: []byte(`{"error":{"code":"50603","message":"system is busy"}}`)},
			exp:  true,
		},
		{
			name: "vendor code numeric 429",
			err:  &chat.StatusError{Code: http.StatusBadRequest, Body: []byte(`{"error":{"code":429,"message":"slow down"}}`)},
			exp:  true,
		},
		{
			name: "message phrase",
			err:  &chat.StatusError{Code: http.StatusBadRequest, Body: []byte(`{"error":{"message":"Too Many Requests, retry later"}}`)},
			exp:  true,
		},
		{
			name: "cjk phrase",
			err:  &chat.StatusError{Code: http.StatusBadRequest, Body: []byte(`{"error":{"message":"请求被限流，请稍后重试"}}`)},
			exp:  true,
		},
		{
			name: "wrapped status error",
			err:  errors.WithMessage(&chat.StatusError{Code: http.StatusTooManyRequests}, "model call"),
			exp:  true,
		},
		{
			name: "free text rate limit",
			err:  errors.New("upstream said: Rate Limit exceeded"),
			exp:  true,
		},
		{
			name: "free text concurrent",
			err:  errors.New("too many concurrent requests in flight"),
			exp:  true,
		},
		{
			name: "unrelated",
			err:  errors.New("connection reset by peer"),
			exp:  false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, router.DefaultClassifier(tc.err))
		})
	}
}
