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

package model

import (
	"fmt"
	"time"
)

// Settings is the provider-agnostic subset of configuration a factory needs.
// It mirrors config.ModelConfig without importing the config package, keeping
// model free of configuration concerns.
type Settings struct {
	Type        string
	Model       string
	Region      string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// Factory builds an LLM from settings. Providers register themselves here to
// avoid an import cycle between model and its implementations.
type Factory func(Settings) (LLM, error)

var factories = map[string]Factory{}

// Register registers a provider factory under a type name. Called from
// provider package init functions.
func Register(providerType string, f Factory) {
	factories[providerType] = f
}

// New builds an LLM for the given settings.
func New(s Settings) (LLM, error) {
	f, ok := factories[s.Type]
	if !ok {
		return nil, fmt.Errorf("unknown model provider type %q", s.Type)
	}
	return f(s)
}
