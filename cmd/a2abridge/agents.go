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
	"time"
)

// CardCmd prints the agent card a configured agent resolves to.
type CardCmd struct {
	Agent   string        `arg:"" help:"Configured agent name."`
	Compact bool          `help:"Compact JSON output (no indentation)."`
	Timeout time.Duration `help:"Resolution timeout." default:"30s"`
}

func (c *CardCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	s, err := cli.open(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	agent, err := s.agents.Agent(c.Agent)
	if err != nil {
		return err
	}
	card, err := agent.Card(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(card); err != nil {
		return fmt.Errorf("failed to encode card: %w", err)
	}
	return nil
}

// ListCmd lists configured agents.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI) error {
	cfg, loader, err := cli.loadConfig(context.Background())
	if err != nil {
		return err
	}
	defer loader.Close()

	if len(cfg.Agents) == 0 {
		fmt.Println("No agents configured")
		return nil
	}
	fmt.Println("Configured agents:")
	for _, name := range cfg.AgentNames() {
		agent, _ := cfg.Agent(name)
		desc := agent.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("  - %s: %s\n", name, desc)
		fmt.Printf("      card:      %s\n", describeCard(agent.Card.Source, agent.Card.URL, agent.Card.File, agent.Card.Endpoints))
		fmt.Printf("      protocols: %v\n", agent.Transport.Protocols)
		if agent.Timeout > 0 {
			fmt.Printf("      timeout:   %s\n", agent.Timeout)
		}
	}
	return nil
}

func describeCard(source, url, file string, endpoints []string) string {
	switch {
	case url != "":
		return fmt.Sprintf("%s (%s)", source, url)
	case file != "":
		return fmt.Sprintf("%s (%s)", source, file)
	case len(endpoints) > 0:
		return fmt.Sprintf("%s %v", source, endpoints)
	}
	return source
}

// ValidateCmd checks a configuration file without contacting any agent.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, loader, err := cli.loadConfig(context.Background())
	if err != nil {
		return err
	}
	defer loader.Close()

	fmt.Printf("Configuration is valid (%d agents)\n", len(cfg.Agents))
	return nil
}
