package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/display"
	"github.com/kadirpekel/a2aprobe/pkg/runner"
)

// RunCmd sends the scenario suite.
type RunCmd struct {
	Watch bool `help:"Run again whenever the config file changes."`
}

func (c *RunCmd) Run(cli *CLI, out io.Writer) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, loader, release, err := cli.prepare(ctx)
	if err != nil {
		return err
	}
	defer release()

	if !c.Watch {
		return runOnce(ctx, cfg, out)
	}
	if loader == nil {
		return fmt.Errorf("--watch requires a config file")
	}

	return runner.Watch(ctx, loader.Provider(), func(ctx context.Context, cfg *config.Config) error {
		if err := cli.finish(cfg); err != nil {
			return err
		}
		return runOnce(ctx, cfg, out)
	})
}

// prepare loads the configuration and applies its logger block. The
// returned release closes the log file and the loader.
func (cli *CLI) prepare(ctx context.Context) (*config.Config, *config.Loader, func(), error) {
	cfg, loader, err := cli.loadConfig(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup, err := initLoggerFromConfig(&cfg.Logger)
	if err != nil {
		if loader != nil {
			loader.Close()
		}
		return nil, nil, nil, err
	}
	release := func() {
		if cleanup != nil {
			cleanup()
		}
		if loader != nil {
			loader.Close()
		}
	}
	return cfg, loader, release, nil
}

// runOnce runs the configured suite and reports failures on out. It
// returns exitCode(1) when the run failed, including before connecting.
func runOnce(ctx context.Context, cfg *config.Config, out io.Writer) error {
	printer := display.NewPrinter(out)

	scenarios, err := runner.FromConfig(&cfg.Run)
	if err != nil {
		reportFailure(printer, err, cfg.Run.Hint)
		return exitCode(1)
	}

	p, err := newProbe(ctx, cfg, printer)
	if err != nil {
		reportFailure(printer, err, cfg.Run.Hint)
		return exitCode(1)
	}
	defer func() {
		if err := p.close(); err != nil {
			slog.Warn("Failed to flush observability", "error", err)
		}
	}()

	if err := p.run(ctx, scenarios); err != nil {
		reportFailure(printer, err, cfg.Run.Hint)
		return exitCode(1)
	}
	return nil
}

// CardCmd fetches and prints the agent card.
type CardCmd struct {
	JSON bool `name:"json" help:"Print the raw card as JSON."`
}

func (c *CardCmd) Run(cli *CLI, out io.Writer) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, _, release, err := cli.prepare(ctx)
	if err != nil {
		return err
	}
	defer release()

	printer := display.NewPrinter(out)
	p, err := newProbe(ctx, cfg, printer)
	if err != nil {
		reportFailure(printer, err, cfg.Run.Hint)
		return exitCode(1)
	}
	defer func() { _ = p.close() }()

	conn, err := p.connect(ctx)
	if err != nil {
		reportFailure(printer, err, cfg.Run.Hint)
		return exitCode(1)
	}
	defer conn.Close()

	card, err := conn.Card(ctx)
	if err != nil {
		reportFailure(printer, err, cfg.Run.Hint)
		return exitCode(1)
	}

	if c.JSON {
		return printer.CardJSON(card)
	}
	printer.Card(card)
	return nil
}

// SendCmd sends one message built from the command line.
type SendCmd struct {
	Text       []string          `arg:"" optional:"" help:"Text parts, one per argument."`
	ContextID  string            `name:"context-id" help:"Context the message belongs to."`
	TaskID     string            `name:"task-id" help:"Existing task to continue."`
	Data       map[string]string `help:"Add a data part entry (KEY=VALUE), repeatable."`
	File       []string          `help:"Attach a file by path, repeatable." type:"existingfile"`
	ExpectEcho bool              `name:"expect-echo" help:"Fail unless every text part comes back."`
}

func (c *SendCmd) Run(cli *CLI, out io.Writer) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, _, release, err := cli.prepare(ctx)
	if err != nil {
		return err
	}
	defer release()

	sc, err := c.scenario()
	if err != nil {
		return err
	}
	cfg.Run.Scenarios = []config.ScenarioConfig{sc}
	return runOnce(ctx, cfg, out)
}

func (c *SendCmd) scenario() (config.ScenarioConfig, error) {
	sc := config.ScenarioConfig{
		Name:       "Sending custom message",
		ContextID:  c.ContextID,
		TaskID:     c.TaskID,
		ExpectEcho: c.ExpectEcho,
	}
	for _, text := range c.Text {
		sc.Parts = append(sc.Parts, config.PartConfig{Text: text})
	}
	if len(c.Data) > 0 {
		data := make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			data[k] = v
		}
		sc.Parts = append(sc.Parts, config.PartConfig{Data: data})
	}
	for _, path := range c.File {
		sc.Parts = append(sc.Parts, config.PartConfig{File: &config.FileConfig{Path: path}})
	}

	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("invalid message: %w", err)
	}
	return sc, nil
}
