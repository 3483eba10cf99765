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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/relay/pkg/config"
)

const (
	roleGateway  = "gateway"
	roleResearch = "research"
	roleAnalysis = "analysis"
	roleAll      = "all"
)

// ServeCmd starts one or all relay services.
type ServeCmd struct {
	Role  string `help:"Service role to run: gateway, research, analysis, or all." enum:"gateway,research,analysis,all" default:"all"`
	Port  int    `help:"Override the listen port for the selected role (not valid with --role all)."`
	Watch bool   `help:"Watch the config file and validate changes on save (a restart is required to apply them)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	slog.Info("Configuration loaded", "summary", cfg.Redacted())

	if c.Port != 0 {
		switch c.Role {
		case roleGateway:
			cfg.Gateway.Port = c.Port
		case roleResearch:
			cfg.Research.Port = c.Port
		case roleAnalysis:
			cfg.Analysis.Port = c.Port
		default:
			return fmt.Errorf("--port requires a single --role, not %q", c.Role)
		}
	}

	if c.Watch {
		if cli.Config == "" {
			return fmt.Errorf("--watch requires --config")
		}
		watcher, err := config.NewWatcher(cli.Config, func(newCfg *config.Config) {
			slog.Warn("Configuration changed on disk; restart to apply", "summary", newCfg.Redacted())
		})
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)

	startAgentRole := func(role string) error {
		srv, err := buildAgentServer(cfg, role)
		if err != nil {
			return err
		}
		fmt.Printf("   %-9s http://%s (card: /.well-known/agent-card.json)\n", role+":", srv.Address())
		g.Go(func() error { return srv.Start(ctx) })
		return nil
	}

	fmt.Printf("\nrelay services starting (transport=%s)\n", cfg.Transport)

	switch c.Role {
	case roleResearch, roleAnalysis:
		if err := startAgentRole(c.Role); err != nil {
			return err
		}
	case roleGateway:
		gw, err := buildGateway(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("   gateway:  http://%s/v1/chat\n", gw.Address())
		g.Go(func() error { return gw.Start(ctx) })
	case roleAll:
		if err := startAgentRole(roleResearch); err != nil {
			return err
		}
		if err := startAgentRole(roleAnalysis); err != nil {
			return err
		}
		gw, err := buildGateway(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("   gateway:  http://%s/v1/chat\n", gw.Address())
		g.Go(func() error { return gw.Start(ctx) })
	}

	fmt.Println("\nPress Ctrl+C to stop")
	return g.Wait()
}
