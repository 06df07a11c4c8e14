// Package config loads and validates the service configuration.
package config

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatrouter/router"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration decodes "2s" style strings from YAML or JSON configuration.
type Duration time.Duration

// TimeDuration returns the value as time.Duration.
func (d Duration) TimeDuration() time.Duration {
	return time.Duration(d)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("invalid duration: %s", string(data))
	}
	*d = Duration(n)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return errors.Errorf("invalid duration: %s", value.Value)
	}
	*d = Duration(n)
	return nil
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration: %s", s)
	}
	*d = Duration(v)
	return nil
}

// DefaultModels is the built-in failover order, used when the
// configuration does not override it. Priority follows list order.
var DefaultModels = []string{
	"Qwen/Qwen2.5-72B-Instruct",
	"deepseek-ai/DeepSeek-V3",
	"THUDM/glm-4-9b-chat",
	"01-ai/Yi-1.5-34B-Chat-16K",
}

// Config is the top level configuration.
type Config struct {
	// Chat configures the upstream chat-completion API.
	Chat ChatConfig `json:"chat" yaml:"chat" validate:"required"`
	// Tools configures the remote tool service. Optional: without an
	// endpoint the assistant runs with local tools only.
	Tools ToolsConfig `json:"tools,omitempty" yaml:"tools,omitempty"`
	// Models overrides the built-in failover order.
	Models []string `json:"models,omitempty" yaml:"models,omitempty" validate:"omitempty,min=1,dive,required"`
	// QueueInterval overrides the minimum spacing between model calls.
	QueueInterval Duration `json:"queue_interval,omitempty" yaml:"queue_interval,omitempty"`
}

// ChatConfig for the OpenAI-compatible chat API.
type ChatConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" validate:"required,url"`
	// Token is the bearer token. Supports ${ENV} expansion.
	Token       string  `json:"token,omitempty" yaml:"token,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

// ToolsConfig for the remote tool service.
type ToolsConfig struct {
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`
	// Transport selects the protocol transport: auto|sse|streamable.
	Transport   string   `json:"transport,omitempty" yaml:"transport,omitempty" validate:"omitempty,oneof=auto sse streamable"`
	CallTimeout Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
}

// ModelList returns the configured failover order as router descriptors.
func (c *Config) ModelList() []router.Descriptor {
	names := c.Models
	if len(names) == 0 {
		names = DefaultModels
	}
	list := make([]router.Descriptor, 0, len(names))
	for i, name := range names {
		list = append(list, router.Descriptor{
			Name:     name,
			Priority: i,
		})
	}
	return list
}

// Load reads the configuration from file, expands ${ENV} references and
// validates it. An empty file name yields an error from validation, not
// a silent default.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	err = validator.New().Struct(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
