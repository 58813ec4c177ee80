// Package config loads the agent configuration file. It recognizes exactly
// the keys the core consumes — no others are read.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haasonsaas/agentcore/internal/memory"
	"github.com/haasonsaas/agentcore/internal/providers"
	"github.com/haasonsaas/agentcore/internal/ratelimit"
	"github.com/haasonsaas/agentcore/internal/runner"
	"github.com/haasonsaas/agentcore/internal/tools/policy"
	"gopkg.in/yaml.v3"
)

// AgentFile is one entry in the top-level Config.Agents list, the on-disk
// mirror of runner.AgentConfig without MaxToolIterations. The memory engine
// config every agent shares lives beside the list, in Config.MemorySearch.
type AgentFile struct {
	ID           int     `yaml:"id"`
	Provider     string  `yaml:"provider"`
	ModelName    string  `yaml:"model_name"`
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`

	RateLimitEnabled bool `yaml:"rate_limit_enabled"`
	RateLimitRPM     int  `yaml:"rate_limit_rpm"`

	ToolProfile string   `yaml:"tool_profile"`
	ToolsAllow  []string `yaml:"tools_allow"`
	ToolsDeny   []string `yaml:"tools_deny"`

	MemorySearchEnabled bool `yaml:"memory_search_enabled"`
}

// Config is the top-level configuration file: a fleet of agents sharing one
// memory engine configuration.
type Config struct {
	Agents       []AgentFile   `yaml:"agents"`
	MemorySearch memory.Config `yaml:"memory_search_config"`
}

// Load reads path, expands ${ENV_VAR} references, and decodes exactly one
// YAML document, rejecting unknown top-level keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected a single YAML document")
	}

	return &cfg, nil
}

// ToAgentConfig converts one file entry into the runtime AgentConfig
// BuildProvider/Runner.Run expect, defaulting ToolProfile to "minimal" when
// unset (the most conservative profile).
func (a AgentFile) ToAgentConfig() runner.AgentConfig {
	profile := policy.Profile(a.ToolProfile)
	if profile == "" {
		profile = policy.ProfileMinimal
	}
	return runner.AgentConfig{
		ID:                  a.ID,
		Provider:            providers.Variant(a.Provider),
		ModelName:           a.ModelName,
		BaseURL:             a.BaseURL,
		APIKey:              a.APIKey,
		SystemPrompt:        a.SystemPrompt,
		Temperature:         a.Temperature,
		MaxTokens:           a.MaxTokens,
		RateLimitEnabled:    a.RateLimitEnabled,
		RateLimitRPM:        a.RateLimitRPM,
		ToolProfile:         profile,
		ToolsAllow:          a.ToolsAllow,
		ToolsDeny:           a.ToolsDeny,
		MemorySearchEnabled: a.MemorySearchEnabled,
	}
}

// BuildLimiterRegistry creates one process-wide rate-limiter registry for
// every agent this config defines; a limiter's ownership lifetime equals
// the process.
func BuildLimiterRegistry() *ratelimit.Registry {
	return ratelimit.NewRegistry()
}
