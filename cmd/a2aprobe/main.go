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

// Command a2aprobe exercises an A2A agent from the client side.
//
// Usage:
//
//	a2aprobe                                  # default suite against http://localhost:8080
//	a2aprobe run --config probe.yaml --watch
//	a2aprobe run --config consul://localhost:8500/a2aprobe/config --watch
//	a2aprobe card --url http://localhost:9000 --json
//	a2aprobe send "hello" --context-id ctx-1
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/a2aprobe"
	"github.com/kadirpekel/a2aprobe/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" default:"1" help:"Send the scenario suite to the agent (default)."`
	Card     CardCmd     `cmd:"" help:"Fetch and print the agent card."`
	Send     SendCmd     `cmd:"" help:"Send a single message and print the response."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config string `short:"c" help:"Config file path, or a consul://, etcd:// or zk:// URL." placeholder:"PATH|URL"`

	// Overrides applied on top of the config file.
	URL         string            `short:"u" help:"A2A server base URL." env:"A2A_SERVER_URL" placeholder:"URL"`
	CardPath    string            `name:"card-path" help:"Agent card path relative to the server URL."`
	Header      map[string]string `short:"H" help:"Extra HTTP header (KEY=VALUE), repeatable."`
	Credential  map[string]string `help:"Credential for a security scheme (SCHEME=VALUE), repeatable."`
	Transport   []string          `help:"Allowed transports in preference order (jsonrpc, grpc)."`
	Stream      *bool             `negatable:"" help:"Stream responses when the agent supports it (use --no-stream to disable)."`
	Polling     bool              `help:"Poll non-terminal tasks after a non-streaming send."`
	MaxEvents   int               `name:"max-events" help:"Events drained per message (default 10)."`
	Timeout     time.Duration     `help:"Connection and response header timeout."`
	Insecure    bool              `help:"Skip TLS certificate verification."`
	Trace       bool              `help:"Print trace spans to stderr."`
	MetricsFile string            `name:"metrics-file" help:"Write Prometheus metrics to this file when done." type:"path"`

	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, text, json)."`
}

// exitCode is returned by commands that already reported their failure.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintln(out, a2aprobe.GetVersion())
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			slog.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("a2aprobe"),
		kong.Description("a2aprobe - A2A client probe"),
		kong.UsageOnError(),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)

	// Initialize logger with CLI flags/env vars (before config loading)
	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err = ctx.Run(&cli)
	if cleanup != nil {
		cleanup()
	}

	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	ctx.FatalIfErrorf(err)
}
