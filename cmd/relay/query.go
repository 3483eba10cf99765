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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kadirpekel/relay/pkg/config"
)

// QueryCmd runs the full pipeline once against the configured agents and
// prints the final report. Useful for smoke-testing a deployment without
// a chat UI.
type QueryCmd struct {
	Query     string `arg:"" help:"The research query."`
	Transport string `help:"Override the configured transport (a2a or direct)."`
	JSON      bool   `help:"Print the structured result as JSON instead of the report text."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Transport != "" {
		if c.Transport != config.TransportA2A && c.Transport != config.TransportDirect {
			return fmt.Errorf("transport must be %q or %q, got %q", config.TransportA2A, config.TransportDirect, c.Transport)
		}
		cfg.Transport = c.Transport
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, c.Query)
	if err != nil {
		return err
	}

	if c.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]any{
			"reply":    result.Reply,
			"research": result.Research,
			"analysis": result.Analysis,
			"steps":    result.Steps,
		})
	}

	fmt.Println(result.Reply)
	return nil
}
