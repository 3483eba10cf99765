package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transport != TransportA2A {
		t.Errorf("Transport = %v, want %v", cfg.Transport, TransportA2A)
	}
	if cfg.Gateway.Port != 9100 {
		t.Errorf("Gateway.Port = %v, want 9100", cfg.Gateway.Port)
	}
	if cfg.Research.URL != "http://localhost:9101" {
		t.Errorf("Research.URL = %v, want http://localhost:9101", cfg.Research.URL)
	}
	if cfg.Analysis.URL != "http://localhost:9102" {
		t.Errorf("Analysis.URL = %v, want http://localhost:9102", cfg.Analysis.URL)
	}
	if cfg.Orchestrator.CallTimeoutSeconds != 30 {
		t.Errorf("CallTimeoutSeconds = %v, want 30", cfg.Orchestrator.CallTimeoutSeconds)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("Session.Store = %v, want memory", cfg.Session.Store)
	}
}

func TestLoad_TransportSelector(t *testing.T) {
	path := writeTempConfig(t, "transport: direct\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport != TransportDirect {
		t.Errorf("Transport = %v, want %v", cfg.Transport, TransportDirect)
	}
}

func TestLoad_InvalidTransportRejected(t *testing.T) {
	path := writeTempConfig(t, "transport: carrier-pigeon\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid transport, got nil")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_RESEARCH_URL", "http://research.internal:7001")

	path := writeTempConfig(t, `
transport: direct
research:
  url: ${RELAY_TEST_RESEARCH_URL}
analysis:
  url: ${RELAY_TEST_ANALYSIS_URL:-http://analysis.internal:7002}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Research.URL != "http://research.internal:7001" {
		t.Errorf("Research.URL = %v, want expanded env value", cfg.Research.URL)
	}
	if cfg.Analysis.URL != "http://analysis.internal:7002" {
		t.Errorf("Analysis.URL = %v, want fallback default", cfg.Analysis.URL)
	}
}

func TestLoad_ModelValidation(t *testing.T) {
	path := writeTempConfig(t, `
transport: direct
models:
  main:
    type: openai
    model: gpt-4o-mini
`)

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for openai model without api_key, got nil")
	}
}

func TestLoad_UnknownModelReference(t *testing.T) {
	path := writeTempConfig(t, `
transport: direct
research:
  model: missing
models:
  main:
    type: openai
    model: gpt-4o-mini
    api_key: sk-test
`)

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for unknown model reference, got nil")
	}
}

func TestLoad_SQLiteSessionRequiresPath(t *testing.T) {
	path := writeTempConfig(t, `
transport: direct
session:
  store: sqlite
`)

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for sqlite store without path, got nil")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeTempConfig(t, "transport: a2a\n")

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("transport: direct\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Transport != TransportDirect {
			t.Errorf("reloaded Transport = %v, want %v", cfg.Transport, TransportDirect)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onChange not invoked after config write")
	}
}

func TestWatcher_SkipsInvalidWrite(t *testing.T) {
	path := writeTempConfig(t, "transport: a2a\n")

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("transport: carrier-pigeon\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	// The invalid intermediate state must be swallowed, not delivered.
	select {
	case cfg := <-changed:
		t.Errorf("onChange invoked with %v for an invalid config", cfg.Transport)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestModelConfig_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
transport: direct
models:
  main:
    type: openai
    model: gpt-4o-mini
    api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m := cfg.Models["main"]
	if m.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", m.Temperature)
	}
	if m.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %v, want 4096", m.MaxTokens)
	}
	if m.TimeoutSeconds != 120 {
		t.Errorf("TimeoutSeconds = %v, want 120", m.TimeoutSeconds)
	}
}
