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

// Package model defines the LLM interface for relay.
//
// Relay's agents make exactly one blocking completion call per request, so
// the interface is deliberately small: a system instruction, a user prompt,
// one response. Tool calling and streaming live in the external orchestration
// frameworks this project wraps, not here.
package model

import "context"

// LLM is a blocking text-completion model.
type LLM interface {
	// Name returns the model identifier.
	Name() string

	// Generate produces one completion for the request.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the model client.
	Close() error
}

// Request is the input for one completion.
type Request struct {
	// System is the system instruction. Optional.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature controls randomness. Zero means provider default.
	Temperature float64

	// MaxTokens limits the response length. Zero means provider default.
	MaxTokens int
}

// Usage reports token consumption when the provider exposes it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is one completion.
type Response struct {
	Text  string
	Usage Usage
}
