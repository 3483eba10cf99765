package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDirect_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoke" {
			t.Errorf("path = %v, want /invoke", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %v, want POST", r.Method)
		}

		var req InvokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if got := req.Message.Text(); got != "Research quantum computing" {
			t.Errorf("request text = %q, want %q", got, "Research quantum computing")
		}

		_ = json.NewEncoder(w).Encode(NewInvokeRequest(`{"topic": "quantum computing"}`))
	}))
	defer srv.Close()

	d := NewDirect(0)
	got, err := d.Call(context.Background(), AgentRef{Name: "research", URL: srv.URL}, "Research quantum computing")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != `{"topic": "quantum computing"}` {
		t.Errorf("Call() = %q, want the agent's text", got)
	}
}

func TestDirect_BareTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain reply"))
	}))
	defer srv.Close()

	d := NewDirect(0)
	got, err := d.Call(context.Background(), AgentRef{Name: "analysis", URL: srv.URL}, "hi")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "plain reply" {
		t.Errorf("Call() = %q, want %q", got, "plain reply")
	}
}

func TestDirect_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "agent exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDirect(0)
	_, err := d.Call(context.Background(), AgentRef{Name: "research", URL: srv.URL}, "hi")
	if err == nil {
		t.Fatal("Call() expected error for HTTP 500, got nil")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want exactly 1 (no retries)", got)
	}
}

func TestDirect_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewDirect(20 * time.Millisecond)
	if _, err := d.Call(context.Background(), AgentRef{Name: "research", URL: srv.URL}, "hi"); err == nil {
		t.Error("Call() expected timeout error, got nil")
	}
}
