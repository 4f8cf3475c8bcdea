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

// Package config loads the a2abridge configuration file.
//
// The file is YAML (JSON is accepted too). ${VAR} and ${VAR:-default}
// references are expanded from the environment after .env files are
// loaded, then the document is decoded, defaulted and validated.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/kadirpekel/a2abridge/pkg/observability"
)

var agentNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Config is the root configuration.
type Config struct {
	// Version of the configuration format.
	Version string `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,default=1"`

	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger"`

	Observability observability.Config `yaml:"observability,omitempty" json:"observability,omitempty" jsonschema:"title=Observability"`

	// Agents maps local names to remote A2A agents.
	Agents map[string]*AgentConfig `yaml:"agents,omitempty" json:"agents,omitempty" jsonschema:"title=Agents,description=Remote A2A agents keyed by local name"`
}

// SetDefaults applies default values to the whole tree.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
	for name, agent := range c.Agents {
		if agent == nil {
			agent = &AgentConfig{}
			c.Agents[name] = agent
		}
		agent.SetDefaults()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Logger.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logger: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}
	for _, name := range c.AgentNames() {
		if !agentNamePattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("agents.%s: invalid name", name))
			continue
		}
		if err := c.Agents[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("agents.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// AgentNames returns the configured agent names in sorted order.
func (c *Config) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Agent returns the named agent config.
func (c *Config) Agent(name string) (*AgentConfig, bool) {
	a, ok := c.Agents[name]
	return a, ok && a != nil
}
