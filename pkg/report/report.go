// Package report defines the structured payloads exchanged between the
// orchestrator and the specialized agents, the marker protocol used to embed
// them in freeform model output, and the best-effort extraction that recovers
// them on the way back out.
//
// The two record shapes are contractually fixed: the chat frontend pattern
// matches on their field names, so renaming a field is a breaking change.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Marker tokens delimiting structured JSON inside freeform orchestrator output.
const (
	ResearchStartMarker = "RESEARCH_DATA_START:"
	ResearchEndMarker   = ":RESEARCH_DATA_END"
	AnalysisStartMarker = "ANALYSIS_DATA_START:"
	AnalysisEndMarker   = ":ANALYSIS_DATA_END"
)

// Finding is a single research finding.
type Finding struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ResearchResult is the fixed shape returned by the research agent.
// Immutable once produced; passed by value into the analysis step.
type ResearchResult struct {
	Topic    string    `json:"topic"`
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
	Sources  string    `json:"sources"`
}

// Insight is a single analysis insight.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Importance  string `json:"importance"`
}

// AnalysisResult is the fixed shape returned by the analysis agent.
type AnalysisResult struct {
	Topic      string    `json:"topic"`
	Overview   string    `json:"overview"`
	Insights   []Insight `json:"insights"`
	Conclusion string    `json:"conclusion"`
}

// RenderMarkers serializes both payloads into the marker protocol the chat UI
// scans for. Nil payloads are omitted.
func RenderMarkers(research *ResearchResult, analysis *AnalysisResult) (string, error) {
	var b strings.Builder

	if research != nil {
		data, err := json.Marshal(research)
		if err != nil {
			return "", fmt.Errorf("failed to marshal research payload: %w", err)
		}
		b.WriteString(ResearchStartMarker)
		b.WriteString(" ")
		b.Write(data)
		b.WriteString(" ")
		b.WriteString(ResearchEndMarker)
	}

	if analysis != nil {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		data, err := json.Marshal(analysis)
		if err != nil {
			return "", fmt.Errorf("failed to marshal analysis payload: %w", err)
		}
		b.WriteString(AnalysisStartMarker)
		b.WriteString(" ")
		b.Write(data)
		b.WriteString(" ")
		b.WriteString(AnalysisEndMarker)
	}

	return b.String(), nil
}
