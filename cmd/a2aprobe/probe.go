// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kadirpekel/a2aprobe"
	"github.com/kadirpekel/a2aprobe/pkg/auth"
	"github.com/kadirpekel/a2aprobe/pkg/client"
	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/display"
	"github.com/kadirpekel/a2aprobe/pkg/observability"
	"github.com/kadirpekel/a2aprobe/pkg/runner"
)

const headerTitle = "A2A Go Client Example"

// probe runs scenarios against the agent described by cfg.
type probe struct {
	cfg     *config.Config
	printer *display.Printer
	obs     *observability.Provider
}

func newProbe(ctx context.Context, cfg *config.Config, printer *display.Printer, obsOpts ...observability.Option) (*probe, error) {
	if cfg.Observability.Tracing.ServiceVersion == "" {
		cfg.Observability.Tracing.ServiceVersion = a2aprobe.GetVersion().Version
	}
	obs, err := observability.Setup(ctx, cfg.Observability, append([]observability.Option{observability.WithStdoutWriter(os.Stderr)}, obsOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability: %w", err)
	}
	return &probe{cfg: cfg, printer: printer, obs: obs}, nil
}

// close flushes spans and writes the metrics textfile.
func (p *probe) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := p.obs.Metrics().WriteTextfile(p.cfg.Observability.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	if err := p.obs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
	}
	return errors.Join(errs...)
}

func (p *probe) connect(ctx context.Context) (*client.Client, error) {
	creds, err := auth.NewServiceFromConfig(&p.cfg.Auth)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithInterceptors(auth.NewInterceptor(creds, false)),
		client.WithTracer(p.obs.Tracer()),
		client.WithMetrics(p.obs.Metrics()),
	}
	return client.Connect(ctx, p.cfg.Server.URL, client.FromConfig(p.cfg), opts...)
}

// run connects, prints the card, registers the print consumer and sends
// the scenarios. Any failure, including a failed scenario, is returned.
func (p *probe) run(ctx context.Context, scenarios []runner.Scenario) error {
	p.printer.Header(headerTitle)
	p.printer.Connecting(p.cfg.Server.URL)

	c, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	card, err := c.Card(ctx)
	if err != nil {
		return err
	}
	p.printer.Card(card)
	p.printer.Blank()

	c.AddEventConsumer(p.printer.Consumer())

	r, err := runner.New(runner.Config{
		MaxEvents: p.cfg.Run.MaxEvents,
		Printer:   p.printer,
		Tracer:    p.obs.Tracer(),
		Metrics:   p.obs.Metrics(),
	})
	if err != nil {
		return err
	}

	report, err := r.Run(ctx, c, scenarios)
	if err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		return err
	}

	slog.Info("Probe finished", "scenarios", len(report.Results), "events", report.Events())
	p.printer.Success("All tests completed successfully!")
	p.printer.Line("🎯 %s and the Go client are compatible!", card.Name)
	return nil
}

// reportFailure prints err and, when nothing was listening, the hint.
func reportFailure(printer *display.Printer, err error, hint string) {
	printer.Failure(err)
	if client.IsConnectionRefused(err) {
		printer.Hint(hint)
	}
}
