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

// Package display prints probe progress and agent events for humans.
package display

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
	"golang.org/x/term"

	"github.com/kadirpekel/a2aprobe/pkg/client"
)

const (
	colorReset = "\033[0m"
	colorGreen = "\033[38;2;16;185;129m"
	colorRed   = "\033[31m"
	colorDim   = "\033[2m"
)

// ruleWidth is the width of the line under Header.
const ruleWidth = 60

// Printer writes display lines to an io.Writer. It is safe for concurrent
// use; each call writes whole lines.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces color on or off. By default color is used only when the
// writer is a terminal.
func WithColor(enabled bool) Option {
	return func(p *Printer) { p.color = enabled }
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, color: isTerminal(w)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, s)
}

func (p *Printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

// Header prints a title and a rule under it.
func (p *Printer) Header(title string) {
	p.write(fmt.Sprintf("🚀 %s\n%s\n", title, strings.Repeat("=", ruleWidth)))
}

// Line prints one line verbatim.
func (p *Printer) Line(format string, args ...any) {
	p.write(fmt.Sprintf(format, args...) + "\n")
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	p.write("\n")
}

// Connecting announces the connection attempt.
func (p *Printer) Connecting(url string) {
	p.write(fmt.Sprintf("🔗 Connecting to A2A server at %s...\n", url))
}

// Scenario announces the i-th (1-based) message.
func (p *Printer) Scenario(i int, name string) {
	p.write(fmt.Sprintf("📤 Test %d: %s...\n", i, name))
}

// Success prints a check-marked line.
func (p *Printer) Success(msg string) {
	p.write(p.paint(colorGreen, "✅ "+msg) + "\n")
}

// Failure prints an error line.
func (p *Printer) Failure(err error) {
	p.write(p.paint(colorRed, fmt.Sprintf("❌ Error: %v", err)) + "\n")
}

// StreamError prints an error raised while draining an event stream.
func (p *Printer) StreamError(err error) {
	p.write(p.paint(colorRed, fmt.Sprintf("❌ Error in event stream: %v", err)) + "\n")
}

// Hint prints operational advice. Continuation lines are kept as given.
func (p *Printer) Hint(hint string) {
	if hint == "" {
		return
	}
	p.write(p.paint(colorDim, strings.TrimRight(hint, "\n")) + "\n")
}

// Card prints the agent card summary.
func (p *Printer) Card(card *a2a.AgentCard) {
	if card == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.paint(colorGreen, "✅ Connected to agent: "+card.Name))
	fmt.Fprintf(&b, "📝 Description: %s\n", card.Description)
	fmt.Fprintf(&b, "🌐 Server URL: %s\n", card.URL)
	fmt.Fprintf(&b, "🔧 Preferred Transport: %s\n", card.PreferredTransport)
	if card.Version != "" {
		fmt.Fprintf(&b, "🏷️  Version: %s\n", card.Version)
	}
	fmt.Fprintf(&b, "📡 Streaming: %v\n", card.Capabilities.Streaming)
	if len(card.Skills) > 0 {
		names := make([]string, 0, len(card.Skills))
		for _, s := range card.Skills {
			name := s.Name
			if name == "" {
				name = s.ID
			}
			names = append(names, name)
		}
		fmt.Fprintf(&b, "🧰 Skills: %s\n", strings.Join(names, ", "))
	}
	p.write(b.String())
}

// CardJSON prints the card as indented JSON.
func (p *Printer) CardJSON(card *a2a.AgentCard) error {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode agent card: %w", err)
	}
	p.write(string(data) + "\n")
	return nil
}

// Event prints one client event.
func (p *Printer) Event(ev client.Event) {
	var b strings.Builder

	switch {
	case ev.Message != nil:
		msg := ev.Message
		fmt.Fprintf(&b, "📨 Message: %s - %d parts\n", msg.Role, len(msg.Parts))
		writeParts(&b, msg.Parts)

	case ev.Task != nil:
		fmt.Fprintf(&b, "📡 Event: Task %s - %s\n", ev.Task.ID, ev.Task.Status.State)
		switch u := ev.Update.(type) {
		case *a2a.TaskStatusUpdateEvent:
			fmt.Fprintf(&b, "   Status Update: %s\n", u.Status.State)
		case *a2a.TaskArtifactUpdateEvent:
			if u.Artifact != nil {
				fmt.Fprintf(&b, "   Artifact Update: %s\n", u.Artifact.Name)
				writeParts(&b, u.Artifact.Parts)
			}
		}

	case ev.Update != nil:
		fmt.Fprintf(&b, "📡 Unknown event type: %T\n", ev.Update)

	default:
		return
	}

	p.write(b.String())
}

// Consumer adapts the printer to a client event consumer.
func (p *Printer) Consumer() client.Consumer {
	return func(_ context.Context, ev client.Event, _ *a2a.AgentCard) {
		p.Event(ev)
	}
}

func writeParts(b *strings.Builder, parts []a2a.Part) {
	for i, part := range parts {
		kind, body := describePart(part)
		fmt.Fprintf(b, "   Part %d (%s): %s\n", i+1, kind, body)
	}
}

func describePart(part a2a.Part) (kind, body string) {
	switch pt := part.(type) {
	case a2a.TextPart:
		return "text", pt.Text
	case *a2a.TextPart:
		return "text", pt.Text
	case a2a.DataPart:
		return "data", compactJSON(pt.Data)
	case *a2a.DataPart:
		return "data", compactJSON(pt.Data)
	case a2a.FilePart:
		return "file", describeFile(pt.File)
	case *a2a.FilePart:
		return "file", describeFile(pt.File)
	default:
		return "unknown", fmt.Sprintf("%T", part)
	}
}

func describeFile(content a2a.FilePartContent) string {
	switch f := content.(type) {
	case a2a.FileURI:
		if f.Name != "" {
			return f.Name
		}
		return f.URI
	case a2a.FileBytes:
		if f.Name != "" {
			return f.Name
		}
		return "[file content]"
	default:
		return "[file content]"
	}
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
