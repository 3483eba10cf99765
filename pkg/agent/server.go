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

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/relay/pkg/metrics"
	"github.com/kadirpekel/relay/pkg/transport"
)

// ServerOptions configures an agent HTTP server.
type ServerOptions struct {
	Host    string
	Port    int
	Version string
}

// Server exposes one agent over HTTP.
//
// Routes:
//   - POST /invoke                        direct path, message envelope in/out
//   - POST /                              A2A JSON-RPC (a2a-go native handler)
//   - GET  /.well-known/agent-card.json   agent card (a2a-go native handler)
//   - GET  /healthz                       health check
//   - GET  /metrics                       Prometheus scrape endpoint
type Server struct {
	agent  *Agent
	opts   ServerOptions
	router chi.Router
	server *http.Server
}

// NewServer creates the HTTP server for an agent.
func NewServer(agent *Agent, opts ServerOptions) *Server {
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Version == "" {
		opts.Version = "0.0.0"
	}

	s := &Server{agent: agent, opts: opts}

	handler := a2asrv.NewHandler(NewExecutor(agent))
	jsonRPC := a2asrv.NewJSONRPCHandler(handler)
	card := a2asrv.NewStaticAgentCardHandler(s.buildCard())

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Post("/invoke", s.handleInvoke)
	r.Method(http.MethodPost, "/", jsonRPC)
	r.Method(http.MethodGet, a2asrv.WellKnownAgentCardPath, card)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Address returns the listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.Address(),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("agent server starting", "agent", s.agent.Name, "address", s.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	slog.Info("agent server shutting down", "agent", s.agent.Name)
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req transport.InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	text := req.Message.Text()
	if text == "" {
		writeError(w, http.StatusBadRequest, "message contains no text")
		return
	}

	reply, err := s.agent.Respond(r.Context(), text)
	if err != nil {
		metrics.RecordStep(s.agent.Name, true)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordStep(s.agent.Name, false)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(transport.NewInvokeRequest(reply))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "agent": s.agent.Name})
}

func (s *Server) buildCard() *a2a.AgentCard {
	url := fmt.Sprintf("http://%s", s.Address())
	return &a2a.AgentCard{
		Name:               s.agent.Name,
		Description:        s.agent.Description,
		URL:                url,
		Version:            s.opts.Version,
		ProtocolVersion:    "1.0",
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{{
			ID:          s.agent.Name,
			Name:        s.agent.Name,
			Description: s.agent.Description,
			Tags:        []string{"relay", s.agent.Name},
		}},
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: false,
		},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Provider: &a2a.AgentProvider{
			Org: "Relay",
			URL: "https://github.com/kadirpekel/relay",
		},
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
