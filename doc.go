// Package relay wires a chat API to a two-step research/analysis agent
// pipeline over the A2A (Agent-to-Agent) protocol or direct HTTP.
//
// Relay runs three services from one binary: a gateway exposing the chat
// endpoint with an embedded orchestrator, a research agent, and an
// analysis agent. The orchestrator calls the agents strictly in sequence
// and embeds their structured JSON payloads in the final report using a
// marker protocol the chat UI can extract.
//
// # Quick Start
//
// Start everything in one process:
//
//	BEDROCK_MODEL_ID=apac.anthropic.claude-sonnet-4-20250514-v1:0 relay serve --role all
//
// Or run the services separately:
//
//	relay serve --role research
//	relay serve --role analysis
//	relay serve --role gateway
//
// Then talk to the gateway:
//
//	curl -X POST http://localhost:9100/v1/chat \
//	  -d '{"message": "Research quantum computing"}'
//
// The transport between orchestrator and agents is selected by
// configuration: "a2a" (protocol-mediated, via github.com/a2aproject/a2a-go)
// or "direct" (plain HTTP POST /invoke). Both produce identical response
// shapes at the gateway.
package relay
