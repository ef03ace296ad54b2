// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config is roused's yaml-backed configuration.
type config struct {
	Listen      string   `yaml:"listen"`      // HTTP endpoint address
	Socket      string   `yaml:"socket"`      // unix socket for the event feed
	Capacity    int      `yaml:"capacity"`    // max wakeup IRQ occurrences per cycle
	MaxDepth    int      `yaml:"maxdepth"`    // max nesting depth per cycle
	GateTimeout duration `yaml:"gatetimeout"` // completion gate wait bound
	LogLevel    string   `yaml:"loglevel"`
}

// duration teaches yaml to decode Go duration strings.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	dur, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = duration(dur)
	return nil
}

// loadConfig returns the configuration from the given yaml file, falling
// back to the defaults for anything left unset. An empty path means
// defaults only.
func loadConfig(path string) (config, error) {
	cfg := config{
		Listen:      "localhost:9779",
		Socket:      "/run/roused.sock",
		GateTimeout: duration(100 * time.Millisecond),
		LogLevel:    "info",
	}
	if path == "" {
		return cfg, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return cfg, fmt.Errorf("malformed configuration %s: %w", path, err)
	}
	return cfg, nil
}
