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

// Package orchestrator runs the research → analysis → report pipeline.
//
// The pipeline is strictly sequential: the analysis agent only ever sees
// data the research agent actually produced. A research failure, or a
// research reply with no parseable payload, aborts the run before the
// analysis agent is contacted.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/relay/pkg/metrics"
	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/report"
	"github.com/kadirpekel/relay/pkg/transport"
)

// Step names recorded in the run trace.
const (
	StepResearch  = "research"
	StepAnalysis  = "analysis"
	StepSynthesis = "synthesis"
)

// StepRecord captures one pipeline stage for observability.
type StepRecord struct {
	Name       string    `json:"name"`
	Agent      string    `json:"agent,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Reply is the final report text, marker-embedded payloads included.
	Reply string

	Research *report.ResearchResult
	Analysis *report.AnalysisResult

	Steps []StepRecord
}

// Config configures an Orchestrator.
type Config struct {
	// Research and Analysis identify the downstream agents.
	Research transport.AgentRef
	Analysis transport.AgentRef

	// Synthesizer, when set, writes the final report summary. When nil
	// the summary is rendered from a fixed template.
	Synthesizer model.LLM
}

// Orchestrator sequences agent calls over a transport.Caller.
type Orchestrator struct {
	cfg    Config
	caller transport.Caller
	logger *slog.Logger
}

// New creates an orchestrator over the given transport.
func New(cfg Config, caller transport.Caller) (*Orchestrator, error) {
	if caller == nil {
		return nil, fmt.Errorf("transport caller is required")
	}
	if cfg.Research.URL == "" || cfg.Analysis.URL == "" {
		return nil, fmt.Errorf("research and analysis agent URLs are required")
	}
	if cfg.Research.Name == "" {
		cfg.Research.Name = "research"
	}
	if cfg.Analysis.Name == "" {
		cfg.Analysis.Name = "analysis"
	}
	return &Orchestrator{
		cfg:    cfg,
		caller: caller,
		logger: slog.Default(),
	}, nil
}

// Run executes the full pipeline for one user query.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Result, error) {
	result := &Result{}

	// Stage 1: research. The instruction spells out what to investigate,
	// matching what the agent's own prompt expects.
	researchText, err := o.step(ctx, result, StepResearch, o.cfg.Research, researchInstruction(query))
	if err != nil {
		return result, fmt.Errorf("research stage: %w", err)
	}

	research := report.Extract(researchText).Research
	if research == nil {
		err := fmt.Errorf("research agent returned no parseable research payload")
		o.recordFailure(result, StepResearch, err)
		return result, fmt.Errorf("research stage: %w", err)
	}
	result.Research = research

	// Stage 2: analysis, fed the research payload verbatim.
	researchJSON, err := json.Marshal(research)
	if err != nil {
		return result, fmt.Errorf("analysis stage: failed to marshal research payload: %w", err)
	}
	analysisText, err := o.step(ctx, result, StepAnalysis, o.cfg.Analysis, analysisInstruction(query, string(researchJSON)))
	if err != nil {
		return result, fmt.Errorf("analysis stage: %w", err)
	}

	analysis := report.Extract(analysisText).Analysis
	if analysis == nil {
		err := fmt.Errorf("analysis agent returned no parseable analysis payload")
		o.recordFailure(result, StepAnalysis, err)
		return result, fmt.Errorf("analysis stage: %w", err)
	}
	result.Analysis = analysis

	// Stage 3: synthesis into the final marker-carrying report.
	started := time.Now()
	reply, err := o.synthesize(ctx, query, research, analysis)
	rec := StepRecord{Name: StepSynthesis, StartedAt: started, FinishedAt: time.Now()}
	metrics.RecordStep(StepSynthesis, err != nil)
	if err != nil {
		rec.Error = err.Error()
		result.Steps = append(result.Steps, rec)
		return result, fmt.Errorf("synthesis stage: %w", err)
	}
	result.Steps = append(result.Steps, rec)
	result.Reply = reply

	return result, nil
}

// step performs one agent call and records its timing.
func (o *Orchestrator) step(ctx context.Context, result *Result, name string, agent transport.AgentRef, text string) (string, error) {
	o.logger.Info("calling agent", "step", name, "agent", agent.Name, "url", agent.URL)

	rec := StepRecord{Name: name, Agent: agent.Name, StartedAt: time.Now()}
	reply, err := o.caller.Call(ctx, agent, text)
	rec.FinishedAt = time.Now()
	metrics.RecordStep(name, err != nil)
	if err != nil {
		rec.Error = err.Error()
		result.Steps = append(result.Steps, rec)
		return "", err
	}
	result.Steps = append(result.Steps, rec)

	o.logger.Debug("agent replied", "step", name, "bytes", len(reply))
	return reply, nil
}

func (o *Orchestrator) recordFailure(result *Result, name string, err error) {
	metrics.RecordStep(name, true)
	now := time.Now()
	result.Steps = append(result.Steps, StepRecord{
		Name:       name,
		StartedAt:  now,
		FinishedAt: now,
		Error:      err.Error(),
	})
}

// synthesize writes the final report. The marker-embedded payloads are
// always rendered by us, never by the model, so downstream extraction
// cannot be broken by a model omitting them.
func (o *Orchestrator) synthesize(ctx context.Context, query string, research *report.ResearchResult, analysis *report.AnalysisResult) (string, error) {
	markers, err := report.RenderMarkers(research, analysis)
	if err != nil {
		return "", err
	}

	summary := templateSummary(query, research, analysis)
	if o.cfg.Synthesizer != nil {
		generated, err := o.generateSummary(ctx, query, research, analysis)
		if err != nil {
			o.logger.Warn("summary generation failed, using template", "error", err)
		} else if generated != "" {
			summary = generated
		}
	}

	return summary + "\n\n" + markers, nil
}

func (o *Orchestrator) generateSummary(ctx context.Context, query string, research *report.ResearchResult, analysis *report.AnalysisResult) (string, error) {
	researchJSON, _ := json.Marshal(research)
	analysisJSON, _ := json.Marshal(analysis)

	resp, err := o.cfg.Synthesizer.Generate(ctx, &model.Request{
		System: "You are a research orchestrator. Write a concise, professional summary of the research and analysis results below. Respond with prose only; do not repeat the raw JSON.",
		Prompt: fmt.Sprintf("User query: %s\n\nResearch results:\n%s\n\nAnalysis results:\n%s", query, researchJSON, analysisJSON),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func templateSummary(query string, research *report.ResearchResult, analysis *report.AnalysisResult) string {
	topic := research.Topic
	if topic == "" {
		topic = query
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on my research and analysis of %s, here is the complete report.\n\n", topic)
	if research.Summary != "" {
		fmt.Fprintf(&b, "Research summary: %s\n\n", research.Summary)
	}
	for _, f := range research.Findings {
		fmt.Fprintf(&b, "- %s: %s\n", f.Title, f.Description)
	}
	if analysis.Overview != "" {
		fmt.Fprintf(&b, "\nAnalysis overview: %s\n", analysis.Overview)
	}
	for _, in := range analysis.Insights {
		fmt.Fprintf(&b, "- %s (%s): %s\n", in.Title, in.Importance, in.Description)
	}
	if analysis.Conclusion != "" {
		fmt.Fprintf(&b, "\nConclusion: %s", analysis.Conclusion)
	}
	return strings.TrimRight(b.String(), "\n")
}

func researchInstruction(query string) string {
	return fmt.Sprintf(
		"Research the following topic comprehensively, covering core concepts, key developments, benefits, limitations, and practical applications: %s",
		query,
	)
}

func analysisInstruction(query, researchData string) string {
	instruction := fmt.Sprintf(
		"Analyze the research findings on %q to identify key trends, strengths, weaknesses, and strategic recommendations.",
		query,
	)
	return fmt.Sprintf("INSTRUCTION: %s\n\nRESEARCH DATA TO ANALYZE:\n%s", instruction, researchData)
}
