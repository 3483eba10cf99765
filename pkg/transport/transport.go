// Package transport carries one request/response exchange between the
// orchestrator and a downstream agent service.
//
// Two strategies exist, selected by configuration:
//
//   - Direct: a plain HTTP POST to the agent's /invoke endpoint.
//   - A2A: the Agent-to-Agent protocol via github.com/a2aproject/a2a-go,
//     with agent-card discovery and message/send.
//
// Both strategies return the agent's textual output, so the orchestrator
// is indifferent to which one is in use.
package transport

import "context"

// AgentRef identifies a downstream agent service.
type AgentRef struct {
	// Name is a human-readable label used in errors and logs.
	Name string

	// URL is the agent's base URL, e.g. "http://localhost:9101".
	URL string
}

// Caller sends text to an agent and returns the agent's textual reply.
type Caller interface {
	Call(ctx context.Context, agent AgentRef, text string) (string, error)
}
