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
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/a2aprobe/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	// Config is the configuration file path (positional argument)
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	Format string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`

	// PrintConfig prints the expanded configuration
	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`
}

// Run executes the validate command.
func (c *ValidateCmd) Run(out io.Writer) error {
	ctx := context.Background()

	_ = config.LoadEnvFilesForConfig(c.Config)

	// LoadConfigFile applies defaults and validates.
	cfg, loader, err := config.LoadConfigFile(ctx, c.Config)
	if err != nil {
		return printLoadError(out, c.Format, c.Config, err)
	}
	defer loader.Close()

	if c.PrintConfig {
		return printExpandedConfig(out, c.Format, c.Config, cfg)
	}

	printSuccess(out, c.Format, c.Config)
	return nil
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// printLoadError prints a configuration load error, tagged with the
// pipeline stage that failed.
func printLoadError(out io.Writer, format, file string, err error) error {
	stage := "load"
	var le *config.LoadError
	if errors.As(err, &le) {
		stage = string(le.Stage)
	}

	switch format {
	case "json":
		printJSONResult(out, false, file, []ValidationError{{Type: stage, Message: err.Error()}})
	case "verbose":
		fmt.Fprintf(out, "Configuration Load Error\n")
		fmt.Fprintf(out, "========================\n\n")
		fmt.Fprintf(out, "File:    %s\n", file)
		fmt.Fprintf(out, "Stage:   %s\n", stage)
		fmt.Fprintf(out, "Error:   %s\n", err.Error())
	default: // compact
		fmt.Fprintf(out, "%s: %s error: %s\n", file, stage, err.Error())
	}
	return exitCode(1)
}

// printSuccess prints a success message.
func printSuccess(out io.Writer, format, file string) {
	switch format {
	case "json":
		printJSONResult(out, true, file, nil)
	case "verbose":
		fmt.Fprintf(out, "Configuration Validation Successful\n")
		fmt.Fprintf(out, "===================================\n\n")
		fmt.Fprintf(out, "File:   %s\n", file)
		fmt.Fprintf(out, "Status: OK Valid\n")
	default: // compact
		fmt.Fprintf(out, "%s: valid\n", file)
	}
}

// printExpandedConfig prints the expanded configuration.
func printExpandedConfig(out io.Writer, format, file string, cfg *config.Config) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as JSON: %w", err)
		}
	default:
		fmt.Fprintf(out, "# Expanded Configuration from: %s\n", file)
		fmt.Fprintf(out, "# (defaults applied, env vars resolved)\n\n")

		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as YAML: %w", err)
		}
		encoder.Close()
	}
	return nil
}

type jsonOutput struct {
	Valid  bool              `json:"valid"`
	File   string            `json:"file"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func printJSONResult(out io.Writer, valid bool, file string, errors []ValidationError) {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(jsonOutput{Valid: valid, File: file, Errors: errors})
}
