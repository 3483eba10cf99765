// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the relay configuration model.
//
// The configuration is an explicit struct constructed once at process start
// and passed by reference into the gateway, orchestrator, and agent services.
// Environment variables participate only here: either through ${VAR}
// expansion inside a YAML file, or through the documented defaults below when
// no file is given. Nothing else in the codebase reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Transport selector values (spec: a single switch at the routing boundary).
const (
	TransportA2A    = "a2a"    // protocol-mediated path via a2a-go
	TransportDirect = "direct" // plain HTTP POST /invoke, bypassing middleware
)

// Config is the root configuration for all relay roles.
type Config struct {
	// Transport selects the orchestrator-to-agent call path: "a2a" or "direct".
	Transport string `yaml:"transport" json:"transport"`

	Gateway      GatewayConfig           `yaml:"gateway" json:"gateway"`
	Research     AgentServiceConfig      `yaml:"research" json:"research"`
	Analysis     AgentServiceConfig      `yaml:"analysis" json:"analysis"`
	Orchestrator OrchestratorConfig      `yaml:"orchestrator" json:"orchestrator"`
	Models       map[string]*ModelConfig `yaml:"models" json:"models"`
	Session      SessionConfig           `yaml:"session" json:"session"`
	Logger       LoggerConfig            `yaml:"logger" json:"logger"`
}

// GatewayConfig configures the chat routing endpoint.
type GatewayConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Address returns the host:port listen address.
func (c *GatewayConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AgentServiceConfig configures one specialized agent service.
type AgentServiceConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// URL is the base URL the orchestrator uses to reach the agent.
	// Defaults to http://localhost:<port>.
	URL string `yaml:"url" json:"url"`

	// Model names an entry in Models used when serving this agent locally.
	Model string `yaml:"model" json:"model"`
}

// Address returns the host:port listen address.
func (c *AgentServiceConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OrchestratorConfig configures the two-step pipeline.
type OrchestratorConfig struct {
	// Model names an entry in Models used for final-report synthesis.
	// Empty means deterministic template synthesis.
	Model string `yaml:"model" json:"model"`

	// CallTimeoutSeconds bounds each agent round-trip. Timeouts fail the
	// step; there is no retry on the pipeline path.
	CallTimeoutSeconds int `yaml:"call_timeout_seconds" json:"call_timeout_seconds"`
}

// ModelConfig configures one LLM provider.
type ModelConfig struct {
	// Type is the provider type: "bedrock" or "openai".
	Type string `yaml:"type" json:"type"`

	// Model is the provider-specific model identifier.
	Model string `yaml:"model" json:"model"`

	// Region is the AWS region (bedrock only).
	Region string `yaml:"region" json:"region,omitempty"`

	// APIKey authenticates against the provider API (openai only; bedrock
	// uses the AWS credential chain).
	APIKey string `yaml:"api_key" json:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (openai only).
	BaseURL string `yaml:"base_url" json:"base_url,omitempty"`

	Temperature float64 `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens,omitempty"`

	// TimeoutSeconds and MaxRetries shape the provider HTTP client.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
	MaxRetries     int `yaml:"max_retries" json:"max_retries,omitempty"`
}

// SessionConfig configures gateway session state.
type SessionConfig struct {
	// Store is "memory" (default) or "sqlite".
	Store string `yaml:"store" json:"store"`

	// Path is the SQLite database path (sqlite store only).
	Path string `yaml:"path" json:"path,omitempty"`
}

// LoggerConfig configures logging when not overridden by CLI flags.
type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file,omitempty"`
	Format string `yaml:"format" json:"format,omitempty"`
}

// envOr reads an environment variable with a fallback. All environment
// lookups for default construction live in this file.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// SetDefaults fills unset fields from the documented environment surface and
// built-in defaults. Ports mirror the original deployment layout: gateway
// 9100, research agent 9101, analysis agent 9102.
func (c *Config) SetDefaults() {
	if c.Transport == "" {
		c.Transport = envOr("RELAY_TRANSPORT", TransportA2A)
	}

	if c.Gateway.Host == "" {
		c.Gateway.Host = "0.0.0.0"
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = envIntOr("ORCHESTRATOR_PORT", 9100)
	}

	if c.Research.Host == "" {
		c.Research.Host = "0.0.0.0"
	}
	if c.Research.Port == 0 {
		c.Research.Port = envIntOr("RESEARCH_AGENT_PORT", 9101)
	}
	if c.Research.URL == "" {
		c.Research.URL = envOr("RESEARCH_AGENT_URL", fmt.Sprintf("http://localhost:%d", c.Research.Port))
	}

	if c.Analysis.Host == "" {
		c.Analysis.Host = "0.0.0.0"
	}
	if c.Analysis.Port == 0 {
		c.Analysis.Port = envIntOr("ANALYSIS_AGENT_PORT", 9102)
	}
	if c.Analysis.URL == "" {
		c.Analysis.URL = envOr("ANALYSIS_AGENT_URL", fmt.Sprintf("http://localhost:%d", c.Analysis.Port))
	}

	if c.Orchestrator.CallTimeoutSeconds == 0 {
		c.Orchestrator.CallTimeoutSeconds = 30
	}

	if c.Models == nil {
		c.Models = make(map[string]*ModelConfig)
	}
	// A BEDROCK_MODEL_ID in the environment implies the original's default
	// setup: orchestrator synthesis and both agents on Bedrock unless the
	// config says otherwise.
	if len(c.Models) == 0 {
		if modelID := os.Getenv("BEDROCK_MODEL_ID"); modelID != "" {
			c.Models["bedrock"] = &ModelConfig{
				Type:   "bedrock",
				Model:  modelID,
				Region: envOr("BEDROCK_REGION", "ap-northeast-2"),
			}
		}
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			c.Models["openai"] = &ModelConfig{
				Type:   "openai",
				Model:  envOr("OPENAI_MODEL", "gpt-4o-mini"),
				APIKey: apiKey,
			}
		}
	}
	for _, m := range c.Models {
		m.setDefaults()
	}

	if c.Research.Model == "" {
		c.Research.Model = firstModel(c.Models, "openai", "bedrock")
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = firstModel(c.Models, "bedrock", "openai")
	}
	if c.Orchestrator.Model == "" {
		c.Orchestrator.Model = firstModel(c.Models, "bedrock")
	}

	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "simple"
	}
}

func (m *ModelConfig) setDefaults() {
	if m.Temperature == 0 {
		m.Temperature = 0.7
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = 4096
	}
	if m.TimeoutSeconds == 0 {
		m.TimeoutSeconds = 120
	}
}

func firstModel(models map[string]*ModelConfig, preferred ...string) string {
	for _, name := range preferred {
		if _, ok := models[name]; ok {
			return name
		}
	}
	for name := range models {
		return name
	}
	return ""
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Transport != TransportA2A && c.Transport != TransportDirect {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportA2A, TransportDirect, c.Transport)
	}

	for name, m := range c.Models {
		if err := m.validate(); err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
	}

	for _, ref := range []struct {
		field string
		model string
	}{
		{"research.model", c.Research.Model},
		{"analysis.model", c.Analysis.Model},
		{"orchestrator.model", c.Orchestrator.Model},
	} {
		if ref.model == "" {
			continue
		}
		if _, ok := c.Models[ref.model]; !ok {
			return fmt.Errorf("%s references unknown model %q", ref.field, ref.model)
		}
	}

	if c.Session.Store != "memory" && c.Session.Store != "sqlite" {
		return fmt.Errorf("session.store must be memory or sqlite, got %q", c.Session.Store)
	}
	if c.Session.Store == "sqlite" && c.Session.Path == "" {
		return fmt.Errorf("session.path is required for the sqlite store")
	}

	if c.Orchestrator.CallTimeoutSeconds < 0 {
		return fmt.Errorf("orchestrator.call_timeout_seconds must not be negative")
	}

	return nil
}

func (m *ModelConfig) validate() error {
	switch m.Type {
	case "bedrock":
		if m.Model == "" {
			return fmt.Errorf("model id is required (e.g. BEDROCK_MODEL_ID)")
		}
	case "openai":
		if m.Model == "" {
			return fmt.Errorf("model id is required")
		}
		if m.APIKey == "" {
			return fmt.Errorf("api_key is required (e.g. OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown provider type %q", m.Type)
	}
	return nil
}
