package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/effective-security/chatrouter/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "chatrouter.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func Test_Load(t *testing.T) {
	t.Setenv("CHAT_TOKEN", "secret-token")

	file := writeConfig(t, `
chat:
  base_url: https://api.example.com/v1
  token: ${CHAT_TOKEN}
  temperature: 0.5
tools:
  endpoint: https://tools.example.com/sse
  transport: sse
  call_timeout: 20s
models:
  - custom/model-one
  - custom/model-two
queue_interval: 3s
`)

	cfg, err := config.Load(file)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.Chat.BaseURL)
	assert.Equal(t, "secret-token", cfg.Chat.Token)
	assert.Equal(t, 0.5, cfg.Chat.Temperature)
	assert.Equal(t, "https://tools.example.com/sse", cfg.Tools.Endpoint)
	assert.Equal(t, "sse", cfg.Tools.Transport)
	assert.Equal(t, 20*time.Second, cfg.Tools.CallTimeout.TimeDuration())
	assert.Equal(t, 3*time.Second, cfg.QueueInterval.TimeDuration())

	models := cfg.ModelList()
	require.Len(t, models, 2)
	assert.Equal(t, "custom/model-one", models[0].Name)
	assert.Equal(t, 0, models[0].Priority)
	assert.Equal(t, "custom/model-two", models[1].Name)
	assert.Equal(t, 1, models[1].Priority)
}

func Test_Load_DefaultModels(t *testing.T) {
	file := writeConfig(t, `
chat:
  base_url: https://api.example.com/v1
`)

	cfg, err := config.Load(file)
	require.NoError(t, err)

	models := cfg.ModelList()
	require.Len(t, models, len(config.DefaultModels))
	for i, m := range models {
		assert.Equal(t, config.DefaultModels[i], m.Name)
		assert.Equal(t, i, m.Priority)
	}
}

func Test_Load_Invalid(t *testing.T) {
	tcases := []struct {
		name    string
		content string
	}{
		{
			name:    "missing base url",
			content: "chat:\n  temperature: 0.5\n",
		},
		{
			name:    "bad url",
			content: "chat:\n  base_url: not-a-url\n",
		},
		{
			name:    "bad transport",
			content: "chat:\n  base_url: https://api.example.com/v1\ntools:\n  endpoint: https://tools.example.com\n  transport: carrier-pigeon\n",
		},
		{
			name:    "temperature out of range",
			content: "chat:\n  base_url: https://api.example.com/v1\n  temperature: 7\n",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			file := writeConfig(t, tc.content)
			_, err := config.Load(file)
			assert.Error(t, err)
		})
	}
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
