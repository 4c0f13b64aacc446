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

// Package runner sends a suite of scenarios to a connected agent.
//
// Each scenario is one message. The runner drains the response events up to
// a cap, prints progress and records what came back:
//   - Events beyond MaxEvents are never read; the stream is closed instead
//   - A stream error ends that scenario only
//   - Echo checks compare sent and received text parts
package runner

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kadirpekel/a2aprobe/pkg/client"
	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/display"
	"github.com/kadirpekel/a2aprobe/pkg/message"
	"github.com/kadirpekel/a2aprobe/pkg/observability"
)

// Sender sends one message and yields its response events.
// *client.Client implements it.
type Sender interface {
	SendMessage(ctx context.Context, msg *a2a.Message) iter.Seq2[client.Event, error]
}

var _ Sender = (*client.Client)(nil)

// Config contains the configuration for creating a Runner.
type Config struct {
	// MaxEvents caps the events drained per scenario.
	// Default: 10
	MaxEvents int

	// Printer receives progress lines (optional).
	Printer *display.Printer

	Tracer  trace.Tracer
	Metrics *observability.Metrics
}

// Runner drives scenarios against a Sender.
type Runner struct {
	maxEvents int
	printer   *display.Printer
	tracer    trace.Tracer
	metrics   *observability.Metrics
}

// New creates a new Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.MaxEvents < 0 {
		return nil, fmt.Errorf("max events must not be negative, got %d", cfg.MaxEvents)
	}
	if cfg.MaxEvents == 0 {
		cfg.MaxEvents = config.DefaultMaxEvents
	}
	if cfg.Printer == nil {
		cfg.Printer = display.NewPrinter(io.Discard)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer(observability.InstrumentationName)
	}

	return &Runner{
		maxEvents: cfg.MaxEvents,
		printer:   cfg.Printer,
		tracer:    cfg.Tracer,
		metrics:   cfg.Metrics,
	}, nil
}

// Run sends every scenario in order. A failing scenario does not stop the
// suite; failures are collected in the report. The returned error is
// non-nil only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context, sender Sender, scenarios []Scenario) (Report, error) {
	ctx, span := r.tracer.Start(ctx, observability.SpanRun)
	defer span.End()

	report := Report{Results: make([]Result, 0, len(scenarios))}
	for i, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r.printer.Scenario(i+1, sc.Name)
		res := r.runScenario(ctx, sender, sc)
		report.Results = append(report.Results, res)
		r.printer.Blank()
	}

	if err := report.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return report, nil
}

func (r *Runner) runScenario(ctx context.Context, sender Sender, sc Scenario) Result {
	msg := sc.Message()

	ctx, span := r.tracer.Start(ctx, observability.SpanScenario, trace.WithAttributes(
		attribute.String(observability.AttrScenario, sc.Name),
		attribute.String(observability.AttrMessageID, msg.ID),
	))
	defer span.End()

	res := Result{Name: sc.Name}
	start := time.Now()
	r.metrics.RecordMessageSent(sc.Name)

	for ev, err := range sender.SendMessage(ctx, msg) {
		if err != nil {
			r.printer.StreamError(err)
			res.Err = err
			break
		}
		res.Events++
		res.Texts = append(res.Texts, receivedTexts(ev)...)
		if res.Events >= r.maxEvents {
			res.Capped = true
			break
		}
	}

	res.Duration = time.Since(start)
	r.metrics.ObserveScenario(sc.Name, res.Duration)

	if res.Err == nil && sc.ExpectEcho {
		if missing := missingEcho(sc.Parts, res.Texts); len(missing) > 0 {
			res.Err = fmt.Errorf("%w: %q", ErrEchoMismatch, missing)
			r.metrics.RecordError("check")
			r.printer.Failure(res.Err)
		}
	}

	span.SetAttributes(
		attribute.Int(observability.AttrEventCount, res.Events),
		attribute.Bool(observability.AttrEventCapped, res.Capped),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}

	slog.Debug("Scenario finished",
		"scenario", sc.Name,
		"events", res.Events,
		"capped", res.Capped,
		"duration", res.Duration,
		"error", res.Err)
	return res
}

// receivedTexts collects the text parts an event carries: message parts,
// the parts of an artifact update, and the status message of a task.
func receivedTexts(ev client.Event) []string {
	if ev.Message != nil {
		return message.Texts(ev.Message.Parts)
	}
	if ev.Task == nil {
		return nil
	}

	var texts []string
	switch u := ev.Update.(type) {
	case *a2a.TaskArtifactUpdateEvent:
		if u.Artifact != nil {
			texts = append(texts, message.Texts(u.Artifact.Parts)...)
		}
	case nil:
		for _, a := range ev.Task.Artifacts {
			texts = append(texts, message.Texts(a.Parts)...)
		}
	}
	if m := ev.Task.Status.Message; m != nil {
		texts = append(texts, message.Texts(m.Parts)...)
	}
	return texts
}

func missingEcho(sent []a2a.Part, received []string) []string {
	var missing []string
	for _, text := range message.Texts(sent) {
		if !slices.Contains(received, text) {
			missing = append(missing, text)
		}
	}
	return missing
}
