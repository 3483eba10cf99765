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

package main

import (
	"fmt"
	"time"

	"github.com/kadirpekel/relay"
	"github.com/kadirpekel/relay/pkg/agent"
	"github.com/kadirpekel/relay/pkg/config"
	"github.com/kadirpekel/relay/pkg/gateway"
	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/orchestrator"
	"github.com/kadirpekel/relay/pkg/transport"

	// Model providers register themselves with the factory.
	_ "github.com/kadirpekel/relay/pkg/model/bedrock"
	_ "github.com/kadirpekel/relay/pkg/model/openai"
)

func buildModel(cfg *config.Config, name string) (model.LLM, error) {
	mc, ok := cfg.Models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %d configured)", name, len(cfg.Models))
	}
	return model.New(model.Settings{
		Type:        mc.Type,
		Model:       mc.Model,
		Region:      mc.Region,
		APIKey:      mc.APIKey,
		BaseURL:     mc.BaseURL,
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
		Timeout:     time.Duration(mc.TimeoutSeconds) * time.Second,
		MaxRetries:  mc.MaxRetries,
	})
}

func buildCaller(cfg *config.Config) transport.Caller {
	timeout := time.Duration(cfg.Orchestrator.CallTimeoutSeconds) * time.Second
	if cfg.Transport == config.TransportDirect {
		return transport.NewDirect(timeout)
	}
	return transport.NewA2A(timeout)
}

func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	orchCfg := orchestrator.Config{
		Research: transport.AgentRef{Name: "research", URL: cfg.Research.URL},
		Analysis: transport.AgentRef{Name: "analysis", URL: cfg.Analysis.URL},
	}

	if cfg.Orchestrator.Model != "" {
		synth, err := buildModel(cfg, cfg.Orchestrator.Model)
		if err != nil {
			return nil, fmt.Errorf("orchestrator model: %w", err)
		}
		orchCfg.Synthesizer = synth
	}

	return orchestrator.New(orchCfg, buildCaller(cfg))
}

func buildStore(cfg *config.Config) (gateway.Store, error) {
	if cfg.Session.Store == "sqlite" {
		return gateway.NewSQLStore(cfg.Session.Path)
	}
	return gateway.NewMemoryStore(), nil
}

func buildGateway(cfg *config.Config) (*gateway.Gateway, error) {
	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return gateway.New(orch, store, gateway.Options{
		Host:    cfg.Gateway.Host,
		Port:    cfg.Gateway.Port,
		Version: relay.Version,
	})
}

func buildAgentServer(cfg *config.Config, role string) (*agent.Server, error) {
	var svcCfg config.AgentServiceConfig
	var build func(model.LLM) (*agent.Agent, error)

	switch role {
	case roleResearch:
		svcCfg = cfg.Research
		build = agent.NewResearch
	case roleAnalysis:
		svcCfg = cfg.Analysis
		build = agent.NewAnalysis
	default:
		return nil, fmt.Errorf("unknown agent role %q", role)
	}

	if svcCfg.Model == "" {
		return nil, fmt.Errorf("%s agent has no model configured (set BEDROCK_MODEL_ID or OPENAI_API_KEY, or configure models in the config file)", role)
	}

	llm, err := buildModel(cfg, svcCfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%s agent model: %w", role, err)
	}

	a, err := build(llm)
	if err != nil {
		return nil, err
	}

	return agent.NewServer(a, agent.ServerOptions{
		Host:    svcCfg.Host,
		Port:    svcCfg.Port,
		Version: relay.Version,
	}), nil
}
