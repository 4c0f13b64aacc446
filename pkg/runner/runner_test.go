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

package runner

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kadirpekel/a2aprobe/internal/a2atest"
	"github.com/kadirpekel/a2aprobe/pkg/client"
	"github.com/kadirpekel/a2aprobe/pkg/display"
	"github.com/kadirpekel/a2aprobe/pkg/message"
	"github.com/kadirpekel/a2aprobe/pkg/observability"
)

// scriptedSender yields a fixed sequence and records how far it was read.
type scriptedSender struct {
	events []client.Event
	err    error
	sent   []*a2a.Message
	read   int
}

func (s *scriptedSender) SendMessage(_ context.Context, msg *a2a.Message) iter.Seq2[client.Event, error] {
	s.sent = append(s.sent, msg)
	return func(yield func(client.Event, error) bool) {
		for _, ev := range s.events {
			s.read++
			if !yield(ev, nil) {
				return
			}
		}
		if s.err != nil {
			yield(client.Event{}, s.err)
		}
	}
}

func agentText(text string) client.Event {
	return client.Event{Message: &a2a.Message{Role: a2a.MessageRoleAgent, Parts: []a2a.Part{a2a.TextPart{Text: text}}}}
}

func newRunner(t *testing.T, cfg Config) (*Runner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Printer = display.NewPrinter(&buf)
	r, err := New(cfg)
	require.NoError(t, err)
	return r, &buf
}

func connect(t *testing.T, srv *a2atest.Server, opts ...client.Option) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, err := client.Connect(ctx, srv.URL, client.DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, 10, r.maxEvents)
	assert.NotNil(t, r.printer)

	_, err = New(Config{MaxEvents: -1})
	assert.Error(t, err)
}

func TestRun_StopsAtCap(t *testing.T) {
	events := make([]client.Event, 25)
	for i := range events {
		events[i] = agentText("tick")
	}
	sender := &scriptedSender{events: events}
	r, _ := newRunner(t, Config{MaxEvents: 10})

	report, err := r.Run(context.Background(), sender, []Scenario{{Name: "flood", Parts: []a2a.Part{message.Text("go")}}})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, 10, report.Results[0].Events)
	assert.True(t, report.Results[0].Capped)
	assert.Equal(t, 10, sender.read, "no event is read past the cap")
	assert.True(t, report.OK())
}

func TestRun_BelowCapIsNotCapped(t *testing.T) {
	sender := &scriptedSender{events: []client.Event{agentText("a"), agentText("b")}}
	r, _ := newRunner(t, Config{MaxEvents: 10})

	report, err := r.Run(context.Background(), sender, []Scenario{{Name: "short", Parts: []a2a.Part{message.Text("go")}}})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Results[0].Events)
	assert.False(t, report.Results[0].Capped)
	assert.Equal(t, []string{"a", "b"}, report.Results[0].Texts)
}

func TestRun_StreamErrorEndsScenarioOnly(t *testing.T) {
	boom := errors.New("connection reset")
	failing := &scriptedSender{events: []client.Event{agentText("partial")}, err: boom}
	r, buf := newRunner(t, Config{})

	report, err := r.Run(context.Background(), failing, []Scenario{
		{Name: "first", Parts: []a2a.Part{message.Text("1")}},
		{Name: "second", Parts: []a2a.Part{message.Text("2")}},
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2, "later scenarios still run")
	assert.ErrorIs(t, report.Results[0].Err, boom)
	assert.Equal(t, 1, report.Results[0].Events)
	assert.False(t, report.OK())
	assert.ErrorIs(t, report.Err(), boom)
	assert.Contains(t, report.Err().Error(), "first: connection reset")
	assert.Contains(t, buf.String(), "❌ Error in event stream: connection reset\n")
	assert.Len(t, failing.sent, 2)
}

func TestRun_PrintsProgress(t *testing.T) {
	sender := &scriptedSender{}
	r, buf := newRunner(t, Config{})

	_, err := r.Run(context.Background(), sender, []Scenario{
		{Name: "Sending simple text message", Parts: []a2a.Part{message.Text("x")}},
		{Name: "Sending multi-part message", Parts: []a2a.Part{message.Text("y")}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"📤 Test 1: Sending simple text message...\n\n📤 Test 2: Sending multi-part message...\n\n",
		buf.String())
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newRunner(t, Config{})
	report, err := r.Run(ctx, &scriptedSender{}, DefaultSuite())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
}

func TestRun_EchoCheck(t *testing.T) {
	tests := []struct {
		name    string
		events  []client.Event
		wantErr bool
	}{
		{name: "echoed", events: []client.Event{agentText("hello")}},
		{name: "missing", events: []client.Event{agentText("something else")}, wantErr: true},
		{name: "no events", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := observability.NewMetrics("")
			require.NoError(t, err)
			r, _ := newRunner(t, Config{Metrics: m})

			report, err := r.Run(context.Background(), &scriptedSender{events: tt.events}, []Scenario{
				{Name: "echo", Parts: []a2a.Part{message.Text("hello")}, ExpectEcho: true},
			})
			require.NoError(t, err)
			if tt.wantErr {
				assert.ErrorIs(t, report.Results[0].Err, ErrEchoMismatch)
			} else {
				assert.NoError(t, report.Results[0].Err)
			}
		})
	}
}

func TestReceivedTexts(t *testing.T) {
	task := &a2a.Task{
		ID:        "t1",
		Artifacts: []*a2a.Artifact{{ID: "a1", Parts: []a2a.Part{a2a.TextPart{Text: "from snapshot"}}}},
		Status: a2a.TaskStatus{
			State:   a2a.TaskStateWorking,
			Message: &a2a.Message{Parts: []a2a.Part{a2a.TextPart{Text: "status"}}},
		},
	}

	assert.Equal(t, []string{"from snapshot", "status"}, receivedTexts(client.Event{Task: task}))

	artifact := &a2a.TaskArtifactUpdateEvent{TaskID: "t1", Artifact: &a2a.Artifact{ID: "a2", Parts: []a2a.Part{a2a.TextPart{Text: "chunk"}}}}
	assert.Equal(t, []string{"chunk", "status"}, receivedTexts(client.Event{Task: task, Update: artifact}),
		"artifact updates contribute only their own parts")

	assert.Nil(t, receivedTexts(client.Event{}))
}

func TestRun_DefaultSuiteAgainstServer(t *testing.T) {
	srv := a2atest.NewServer(t)
	c := connect(t, srv)

	m, err := observability.NewMetrics("")
	require.NoError(t, err)
	r, buf := newRunner(t, Config{Metrics: m})

	report, err := r.Run(context.Background(), c, DefaultSuite())
	require.NoError(t, err)
	require.NoError(t, report.Err())

	require.Len(t, report.Results, 3)
	for _, res := range report.Results {
		assert.Positive(t, res.Events, res.Name)
		assert.LessOrEqual(t, res.Events, 10, res.Name)
	}
	assert.Contains(t, report.Results[0].Texts, "Hello from Go a2a-client!")
	assert.Contains(t, report.Results[1].Texts, "End of message")
	assert.Contains(t, report.Results[2].Texts, "Message with task context")
	assert.Equal(t, 3, srv.Executions())

	out := buf.String()
	assert.Contains(t, out, "📤 Test 1: Sending simple text message...")
	assert.Contains(t, out, "📤 Test 3: Sending message with task ID...")
}

func TestRun_FloodIsCappedAgainstServer(t *testing.T) {
	srv := a2atest.NewServer(t, a2atest.WithMode(a2atest.ModeFlood), a2atest.WithFloodCount(30))
	c := connect(t, srv)

	var consumed int
	c.AddEventConsumer(func(context.Context, client.Event, *a2a.AgentCard) { consumed++ })

	r, _ := newRunner(t, Config{})
	report, err := r.Run(context.Background(), c, []Scenario{{Name: "flood", Parts: []a2a.Part{message.Text("go")}}})
	require.NoError(t, err)

	assert.Equal(t, 10, report.Results[0].Events)
	assert.True(t, report.Results[0].Capped)
	assert.Equal(t, 10, consumed)
}

func TestRun_FailedTaskIsNotAnError(t *testing.T) {
	srv := a2atest.NewServer(t, a2atest.WithMode(a2atest.ModeFail))
	c := connect(t, srv)

	r, _ := newRunner(t, Config{})
	report, err := r.Run(context.Background(), c, []Scenario{{Name: "fail", Parts: []a2a.Part{message.Text("go")}}})
	require.NoError(t, err)

	assert.NoError(t, report.Err())
	assert.Contains(t, report.Results[0].Texts, a2atest.FailureText)
}

func TestRun_Traced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r, _ := newRunner(t, Config{Tracer: tp.Tracer("test"), MaxEvents: 1})
	_, err := r.Run(context.Background(), &scriptedSender{events: []client.Event{agentText("a"), agentText("b")}},
		[]Scenario{{Name: "one", Parts: []a2a.Part{message.Text("x")}}})
	require.NoError(t, err)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
		if s.Name() != observability.SpanScenario {
			continue
		}
		attrs := map[string]any{}
		for _, kv := range s.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		assert.Equal(t, "one", attrs[observability.AttrScenario])
		assert.Equal(t, int64(1), attrs[observability.AttrEventCount])
		assert.Equal(t, true, attrs[observability.AttrEventCapped])
	}
	assert.Equal(t, observability.SpanScenario+","+observability.SpanRun, strings.Join(names, ","))
}
