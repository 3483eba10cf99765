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
	"fmt"

	"github.com/kadirpekel/relay/pkg/config"
)

// ValidateCmd validates the configuration and prints a summary.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid.")
	fmt.Printf("  %s\n", cfg.Redacted())
	if cfg.Session.Store == "sqlite" {
		fmt.Printf("  sessions: sqlite (%s)\n", cfg.Session.Path)
	} else {
		fmt.Println("  sessions: in-memory (not persisted)")
	}
	return nil
}
