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

// Package gateway exposes the chat API that fronts the orchestrator.
//
// The gateway is what a chat UI talks to. It runs the research/analysis
// pipeline over the configured transport and returns both the freeform
// reply and the structured payloads, so the response shape is identical
// whichever transport is in use.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kadirpekel/relay/pkg/metrics"
	"github.com/kadirpekel/relay/pkg/orchestrator"
	"github.com/kadirpekel/relay/pkg/report"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the reply to POST /v1/chat.
type ChatResponse struct {
	SessionID string                    `json:"session_id"`
	Reply     string                    `json:"reply"`
	Research  *report.ResearchResult    `json:"research,omitempty"`
	Analysis  *report.AnalysisResult    `json:"analysis,omitempty"`
	Steps     []orchestrator.StepRecord `json:"steps,omitempty"`
}

// Options configures a Gateway.
type Options struct {
	Host    string
	Port    int
	Version string
}

// Gateway is the UI-facing HTTP service.
type Gateway struct {
	orch   *orchestrator.Orchestrator
	store  Store
	opts   Options
	router chi.Router
	server *http.Server
}

// New creates a gateway over an orchestrator and a session store.
func New(orch *orchestrator.Orchestrator, store Store, opts Options) (*Gateway, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}

	g := &Gateway{orch: orch, store: store, opts: opts}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Post("/v1/chat", g.handleChat)
	r.Get("/v1/sessions/{id}", g.handleGetSession)
	r.Delete("/v1/sessions/{id}", g.handleDeleteSession)
	r.Get("/healthz", g.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	g.router = r
	return g, nil
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler { return g.router }

// Address returns the listen address.
func (g *Gateway) Address() string {
	return fmt.Sprintf("%s:%d", g.opts.Host, g.opts.Port)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (g *Gateway) Start(ctx context.Context) error {
	g.server = &http.Server{
		Addr:         g.Address(),
		Handler:      g.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("gateway starting", "address", g.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return g.Shutdown(context.Background())
	}
}

// Shutdown stops the gateway gracefully and closes the session store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	defer func() { _ = g.store.Close() }()
	if g.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	slog.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	slog.Info("chat request", "session", sessionID, "message_len", len(req.Message))

	result, err := g.orch.Run(r.Context(), req.Message)
	if err != nil {
		slog.Error("pipeline failed", "session", sessionID, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
			"steps":      result.Steps,
		})
		return
	}

	session := &Session{
		ID:       sessionID,
		Research: result.Research,
		Analysis: result.Analysis,
	}
	if err := g.store.Put(r.Context(), session); err != nil {
		slog.Warn("failed to persist session", "session", sessionID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatResponse{
		SessionID: sessionID,
		Reply:     result.Reply,
		Research:  result.Research,
		Analysis:  result.Analysis,
		Steps:     result.Steps,
	})
}

func (g *Gateway) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := g.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(session)
}

func (g *Gateway) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := g.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
