package llmutils_test

import (
	"testing"

	"github.com/effective-security/chatrouter/pkg/llmutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tcases := []struct {
		name string
		in   string
		exp  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"prefixed", `Sure, here you go: {"a":1}`, `{"a":1}`},
		{"suffixed", `{"a":1} hope that helps!`, `{"a":1}`},
		{"array", `the list: [1,2,3].`, `[1,2,3]`},
		{"no_json", `just words`, `just words`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, string(llmutils.CleanJSON([]byte(tc.in))))
		})
	}
}

func TestParseToolArguments(t *testing.T) {
	args, err := llmutils.ParseToolArguments(`{"city": "Paris", "days": 3}`)
	require.NoError(t, err)
	assert.Equal(t, "Paris", args["city"])

	// trailing chatter and missing quotes are tolerated
	args, err = llmutils.ParseToolArguments("```json\n{\"city\": \"Paris\",}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Paris", args["city"])

	args, err = llmutils.ParseToolArguments("")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = llmutils.ParseToolArguments("not json at all")
	require.Error(t, err)
}

func TestToJSON(t *testing.T) {
	assert.Equal(t, `{"q":"a<b"}`, llmutils.ToJSON(map[string]string{"q": "a<b"}))
}
