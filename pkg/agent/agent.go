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

// Package agent implements the research and analysis agent services.
//
// An Agent is a name, a system instruction and a model. The instruction
// pins the agent's output to a fixed JSON shape so the orchestrator can
// extract it downstream. Each agent is served over two wire surfaces: a
// plain /invoke endpoint and the A2A protocol via a2a-go.
package agent

import (
	"context"
	"fmt"

	"github.com/kadirpekel/relay/pkg/model"
)

// Agent answers one request with one model completion.
type Agent struct {
	Name        string
	Description string
	Instruction string

	llm model.LLM
}

// New creates an agent around a model.
func New(name, description, instruction string, llm model.LLM) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if llm == nil {
		return nil, fmt.Errorf("agent %q: model is required", name)
	}
	return &Agent{
		Name:        name,
		Description: description,
		Instruction: instruction,
		llm:         llm,
	}, nil
}

// Respond produces the agent's reply to one message.
func (a *Agent) Respond(ctx context.Context, text string) (string, error) {
	resp, err := a.llm.Generate(ctx, &model.Request{
		System: a.Instruction,
		Prompt: text,
	})
	if err != nil {
		return "", fmt.Errorf("agent %q: %w", a.Name, err)
	}
	return resp.Text, nil
}

// Close releases the underlying model client.
func (a *Agent) Close() error {
	return a.llm.Close()
}

const researchInstruction = `You are a research specialist. Given a research request, investigate the topic and respond with ONLY a JSON object in exactly this format, with no surrounding prose or code fences:

{"topic": "the research topic", "summary": "a concise summary of what you found", "findings": [{"title": "finding title", "description": "finding details"}], "sources": "where this information comes from"}

Include 3-5 findings. Every field is required.`

const analysisInstruction = `You are an analysis specialist. You receive an instruction and research data to analyze. Respond with ONLY a JSON object in exactly this format, with no surrounding prose or code fences:

{"topic": "the analyzed topic", "overview": "overview of the analysis", "insights": [{"title": "insight title", "description": "insight details", "importance": "why it matters"}], "conclusion": "overall conclusion"}

Include 3-5 insights. Every field is required.`

// NewResearch creates the research agent.
func NewResearch(llm model.LLM) (*Agent, error) {
	return New(
		"research",
		"Investigates topics and returns structured research findings",
		researchInstruction,
		llm,
	)
}

// NewAnalysis creates the analysis agent.
func NewAnalysis(llm model.LLM) (*Agent, error) {
	return New(
		"analysis",
		"Analyzes research findings and returns structured insights",
		analysisInstruction,
		llm,
	)
}
