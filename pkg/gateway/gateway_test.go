package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kadirpekel/relay/pkg/agent"
	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/orchestrator"
	"github.com/kadirpekel/relay/pkg/transport"
)

// scriptedLLM returns a fixed reply regardless of the prompt.
type scriptedLLM struct {
	reply string
	err   error
}

func (m *scriptedLLM) Name() string { return "scripted" }
func (m *scriptedLLM) Close() error { return nil }
func (m *scriptedLLM) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.Response{Text: m.reply}, nil
}

const (
	researchJSON = `{"topic": "Artificial Intelligence", "summary": "AI is advancing quickly.", "findings": [{"title": "Foundation models", "description": "General-purpose models dominate."}], "sources": "Survey papers"}`
	analysisJSON = `{"topic": "Artificial Intelligence", "overview": "Strong adoption.", "insights": [{"title": "Tooling gap", "description": "Operational tooling lags research.", "importance": "High"}], "conclusion": "Invest in infrastructure."}`
)

// startAgent serves a real agent over httptest and returns its base URL.
func startAgent(t *testing.T, build func(model.LLM) (*agent.Agent, error), llm model.LLM) string {
	t.Helper()
	a, err := build(llm)
	if err != nil {
		t.Fatalf("failed to build agent: %v", err)
	}
	srv := httptest.NewServer(agent.NewServer(a, agent.ServerOptions{Version: "test"}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestGateway(t *testing.T, researchURL, analysisURL string) *Gateway {
	t.Helper()
	orch, err := orchestrator.New(orchestrator.Config{
		Research: transport.AgentRef{Name: "research", URL: researchURL},
		Analysis: transport.AgentRef{Name: "analysis", URL: analysisURL},
	}, transport.NewDirect(0))
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}
	g, err := New(orch, NewMemoryStore(), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestGateway_ChatEndToEnd(t *testing.T) {
	researchURL := startAgent(t, agent.NewResearch, &scriptedLLM{reply: researchJSON})
	analysisURL := startAgent(t, agent.NewAnalysis, &scriptedLLM{reply: analysisJSON})

	g := newTestGateway(t, researchURL, analysisURL)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"message": "Research artificial intelligence"}`))
	if err != nil {
		t.Fatalf("POST /v1/chat error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if chat.SessionID == "" {
		t.Error("response missing session_id")
	}
	if chat.Research == nil || len(chat.Research.Findings) == 0 {
		t.Fatalf("Research = %+v, want at least one finding", chat.Research)
	}
	if chat.Analysis == nil || len(chat.Analysis.Insights) == 0 {
		t.Fatalf("Analysis = %+v, want at least one insight", chat.Analysis)
	}
	if !strings.Contains(chat.Reply, "RESEARCH_DATA_START:") {
		t.Error("reply missing research markers")
	}

	// The stored session must carry the same payloads.
	got, err := g.store.Get(context.Background(), chat.SessionID)
	if err != nil {
		t.Fatalf("store.Get() error = %v", err)
	}
	if got.Research.Topic != "Artificial Intelligence" {
		t.Errorf("stored research topic = %q", got.Research.Topic)
	}
}

func TestGateway_ResearchFailurePropagates(t *testing.T) {
	researchURL := startAgent(t, agent.NewResearch, &scriptedLLM{err: fmt.Errorf("model unavailable")})
	analysisURL := startAgent(t, agent.NewAnalysis, &scriptedLLM{reply: analysisJSON})

	g := newTestGateway(t, researchURL, analysisURL)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"message": "Research artificial intelligence"}`))
	if err != nil {
		t.Fatalf("POST /v1/chat error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if !strings.Contains(body.Error, "research stage") {
		t.Errorf("error = %q, want research stage tag", body.Error)
	}
}

func TestGateway_RejectsEmptyMessage(t *testing.T) {
	g := newTestGateway(t, "http://localhost:9101", "http://localhost:9102")
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /v1/chat error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGateway_SessionLifecycle(t *testing.T) {
	g := newTestGateway(t, "http://localhost:9101", "http://localhost:9102")
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	session := &Session{ID: "s1"}
	if err := g.store.Put(context.Background(), session); err != nil {
		t.Fatalf("store.Put() error = %v", err)
	}

	resp, err := http.Get(srv.URL + "/v1/sessions/s1")
	if err != nil {
		t.Fatalf("GET session error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d, want 200", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions/s1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE session error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/sessions/s1")
	if err != nil {
		t.Fatalf("GET session error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", resp.StatusCode)
	}
}
