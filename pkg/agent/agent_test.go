package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/transport"
)

// mockLLM is a model.LLM with a pluggable Generate function.
type mockLLM struct {
	generateFunc func(ctx context.Context, req *model.Request) (*model.Response, error)
}

func (m *mockLLM) Name() string { return "mock" }
func (m *mockLLM) Close() error { return nil }
func (m *mockLLM) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	return m.generateFunc(ctx, req)
}

func TestAgent_RespondUsesInstruction(t *testing.T) {
	llm := &mockLLM{
		generateFunc: func(ctx context.Context, req *model.Request) (*model.Response, error) {
			if !strings.Contains(req.System, "research specialist") {
				t.Errorf("system prompt = %q, want research instruction", req.System)
			}
			if req.Prompt != "Research Go generics" {
				t.Errorf("prompt = %q", req.Prompt)
			}
			return &model.Response{Text: `{"topic": "Go generics"}`}, nil
		},
	}

	a, err := NewResearch(llm)
	if err != nil {
		t.Fatalf("NewResearch() error = %v", err)
	}

	got, err := a.Respond(context.Background(), "Research Go generics")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got != `{"topic": "Go generics"}` {
		t.Errorf("Respond() = %q", got)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "", "", &mockLLM{}); err == nil {
		t.Error("New() expected error for empty name, got nil")
	}
	if _, err := New("research", "", "", nil); err == nil {
		t.Error("New() expected error for nil model, got nil")
	}
}

func newTestServer(t *testing.T, llm model.LLM) *Server {
	t.Helper()
	a, err := NewAnalysis(llm)
	if err != nil {
		t.Fatalf("NewAnalysis() error = %v", err)
	}
	return NewServer(a, ServerOptions{Host: "localhost", Port: 9102, Version: "test"})
}

func TestServer_Invoke(t *testing.T) {
	llm := &mockLLM{
		generateFunc: func(ctx context.Context, req *model.Request) (*model.Response, error) {
			return &model.Response{Text: `{"topic": "t", "insights": []}`}, nil
		},
	}
	srv := httptest.NewServer(newTestServer(t, llm).Handler())
	defer srv.Close()

	body, _ := json.Marshal(transport.NewInvokeRequest("analyze this"))
	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST /invoke error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var reply transport.InvokeRequest
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if got := reply.Message.Text(); got != `{"topic": "t", "insights": []}` {
		t.Errorf("reply text = %q", got)
	}
}

func TestServer_InvokeModelFailure(t *testing.T) {
	llm := &mockLLM{
		generateFunc: func(ctx context.Context, req *model.Request) (*model.Response, error) {
			return nil, fmt.Errorf("model unavailable")
		},
	}
	srv := httptest.NewServer(newTestServer(t, llm).Handler())
	defer srv.Close()

	body, _ := json.Marshal(transport.NewInvokeRequest("analyze this"))
	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST /invoke error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestServer_InvokeRejectsEmptyMessage(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, &mockLLM{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(`{"message": {"parts": []}}`))
	if err != nil {
		t.Fatalf("POST /invoke error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_AgentCard(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, &mockLLM{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/.well-known/agent-card.json")
	if err != nil {
		t.Fatalf("GET card error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var card struct {
		Name     string `json:"name"`
		Version  string `json:"version"`
		Protocol string `json:"protocolVersion"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		t.Fatalf("failed to decode card: %v", err)
	}
	if card.Name != "analysis" {
		t.Errorf("card name = %q, want analysis", card.Name)
	}
}

func TestServer_Health(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, &mockLLM{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
