package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/chatrouter/pkg/llmutils"
	"github.com/effective-security/chatrouter/tools/tavily"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "testkey")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req tavilyModels.SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)

		assert.Equal(t, "What is capital of France", req.Query)

		resp := tavily.SearchResult{
			Results: []tavilyModels.SearchResult{
				{Title: "Test Result", URL: "https://example.com", Content: "Test content", Score: 0.9},
			},
		}
		if req.IncludeAnswer {
			resp.Answer = "Paris"
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ctx := context.Background()

	tool, err := tavily.New()
	require.NoError(t, err)
	tool.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	assert.Equal(t, tavily.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "Search the web")
	assert.NotNil(t, tool.Parameters())

	_, err = tool.Call(ctx, "plain string")
	assert.Error(t, err)

	input := &tavily.SearchRequest{
		Query: "What is capital of France",
	}

	resp, err := tool.Run(ctx, input)
	require.NoError(t, err)

	exp := &tavily.SearchResult{
		Results: []tavilyModels.SearchResult{
			{Title: "Test Result", URL: "https://example.com", Content: "Test content", Score: 0.9},
		},
		Answer: "Paris",
	}
	assert.Empty(t, cmp.Diff(exp, resp))

	expText := `ANSWER: Paris
- URL: https://example.com
  TITLE: Test Result
`
	assert.Equal(t, expText, resp.String())

	out, err := tool.Call(ctx, llmutils.ToJSON(input))
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"title":"Test Result","url":"https://example.com","content":"Test content","score":0.9}],"answer":"Paris"}`, out)
}

func Test_New_MissingKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	_, err := tavily.New()
	require.EqualError(t, err, "TAVILY_API_KEY is not set")
}

func Test_Run_EmptyQuery(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "testkey")

	tool, err := tavily.New()
	require.NoError(t, err)

	_, err = tool.Run(context.Background(), &tavily.SearchRequest{})
	require.EqualError(t, err, "invalid request: empty query")
}
