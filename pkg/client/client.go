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

// Package client connects to a remote A2A agent, fans response events out
// to registered consumers and exposes them as iterators.
//
//	c, err := client.Connect(ctx, "http://localhost:8080", client.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	c.AddEventConsumer(printer.Consumer())
//	for ev, err := range c.SendMessage(ctx, msg) {
//		...
//	}
package client

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kadirpekel/a2aprobe/pkg/httpclient"
	"github.com/kadirpekel/a2aprobe/pkg/observability"
)

// Consumer receives every event of every call, in registration order,
// before the event is handed to the caller.
type Consumer func(ctx context.Context, ev Event, card *a2a.AgentCard)

// Client is a connected A2A client.
type Client struct {
	url     string
	cfg     Config
	tracer  trace.Tracer
	metrics *observability.Metrics

	mu        sync.RWMutex
	sdk       *a2aclient.Client
	card      *a2a.AgentCard
	consumers []Consumer
	closed    bool
}

// Option configures Connect.
type Option func(*connectOptions)

type connectOptions struct {
	consumers    []Consumer
	interceptors []a2aclient.CallInterceptor
	httpClient   *http.Client
	card         *a2a.AgentCard
	tracer       trace.Tracer
	metrics      *observability.Metrics
}

// WithConsumers registers consumers up front.
func WithConsumers(consumers ...Consumer) Option {
	return func(o *connectOptions) {
		o.consumers = append(o.consumers, consumers...)
	}
}

// WithInterceptors adds SDK call interceptors, auth for example.
func WithInterceptors(interceptors ...a2aclient.CallInterceptor) Option {
	return func(o *connectOptions) {
		o.interceptors = append(o.interceptors, interceptors...)
	}
}

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(c *http.Client) Option {
	return func(o *connectOptions) {
		o.httpClient = c
	}
}

// WithCard skips card resolution and uses card as is.
func WithCard(card *a2a.AgentCard) Option {
	return func(o *connectOptions) {
		o.card = card
	}
}

// WithTracer traces connect and send calls.
func WithTracer(t trace.Tracer) Option {
	return func(o *connectOptions) {
		o.tracer = t
	}
}

// WithMetrics counts events and errors.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *connectOptions) {
		o.metrics = m
	}
}

// Connect resolves the agent card at url and creates an SDK client for it.
// Failures are reported as *ConnectError.
func Connect(ctx context.Context, url string, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()

	o := &connectOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer(observability.InstrumentationName)
	}

	ctx, span := o.tracer.Start(ctx, observability.SpanConnect,
		trace.WithAttributes(attribute.String(observability.AttrAgentURL, url)))
	defer span.End()

	fail := func(err error) (*Client, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.metrics.RecordError("connect")
		return nil, &ConnectError{URL: url, Err: err}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		var err error
		httpClient, err = httpclient.New(
			httpclient.WithTimeout(cfg.Timeout),
			httpclient.WithHeaders(cfg.Headers),
			httpclient.WithTLS(cfg.TLS),
			httpclient.WithMaxRetries(cfg.MaxRetries),
		)
		if err != nil {
			return fail(err)
		}
	}

	card := o.card
	if card == nil {
		resolver := agentcard.NewResolver(httpClient)
		var err error
		if cfg.CardPath != "" {
			card, err = resolver.Resolve(ctx, url, agentcard.WithPath(cfg.CardPath))
		} else {
			card, err = resolver.Resolve(ctx, url)
		}
		if err != nil {
			return fail(fmt.Errorf("failed to resolve agent card: %w", err))
		}
	}
	slog.Debug("Resolved agent card", "name", card.Name, "url", card.URL, "transport", card.PreferredTransport)

	interceptors := append([]a2aclient.CallInterceptor{&metaInterceptor{extensions: cfg.Extensions}}, o.interceptors...)

	factoryOpts := []a2aclient.FactoryOption{
		a2aclient.WithConfig(a2aclient.Config{
			AcceptedOutputModes: cfg.AcceptedOutputModes,
			PreferredTransports: cfg.Transports,
		}),
		a2aclient.WithInterceptors(interceptors...),
	}
	if cfg.allows(a2a.TransportProtocolJSONRPC) {
		factoryOpts = append(factoryOpts, a2aclient.WithJSONRPCTransport(httpClient))
	}
	if cfg.allows(a2a.TransportProtocolGRPC) {
		dialOpts, err := grpcDialOptions(cfg)
		if err != nil {
			return fail(err)
		}
		factoryOpts = append(factoryOpts, a2aclient.WithGRPCTransport(dialOpts...))
	}

	sdk, err := a2aclient.NewFromCard(ctx, card, factoryOpts...)
	if err != nil {
		return fail(fmt.Errorf("failed to create a2a client: %w", err))
	}

	span.SetAttributes(
		attribute.String(observability.AttrAgentName, card.Name),
		attribute.String(observability.AttrTransport, string(card.PreferredTransport)),
	)

	return &Client{
		url:       url,
		cfg:       cfg,
		tracer:    o.tracer,
		metrics:   o.metrics,
		sdk:       sdk,
		card:      card,
		consumers: o.consumers,
	}, nil
}

// grpcDialOptions dials in plaintext unless TLS is configured.
func grpcDialOptions(cfg Config) ([]grpc.DialOption, error) {
	if cfg.TLS == nil {
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
	}
	tr, err := httpclient.ConfigureTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(tr.TLSClientConfig))}, nil
}

// URL returns the address the client was connected with.
func (c *Client) URL() string {
	return c.url
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Card returns the agent card, fetching it from the agent when none is
// cached yet.
func (c *Client) Card(ctx context.Context) (*a2a.AgentCard, error) {
	sdk, card, err := c.state()
	if err != nil {
		return nil, err
	}
	if card != nil {
		return card, nil
	}

	card, err = sdk.GetAgentCard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent card: %w", err)
	}
	c.mu.Lock()
	c.card = card
	c.mu.Unlock()
	return card, nil
}

// AddEventConsumer registers fn for all later events.
func (c *Client) AddEventConsumer(fn Consumer) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, fn)
}

func (c *Client) state() (*a2aclient.Client, *a2a.AgentCard, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.sdk == nil {
		return nil, nil, ErrNotConnected
	}
	return c.sdk, c.card, nil
}

func (c *Client) notify(ctx context.Context, ev Event, card *a2a.AgentCard) {
	c.mu.RLock()
	consumers := append([]Consumer(nil), c.consumers...)
	c.mu.RUnlock()

	for _, fn := range consumers {
		fn(ctx, ev, card)
	}
	c.metrics.RecordEvent(ev.Kind())
}

// Streams reports whether SendMessage will stream for the current card.
func (c *Client) Streams() bool {
	_, card, err := c.state()
	if err != nil || card == nil {
		return false
	}
	return c.cfg.Streaming && card.Capabilities.Streaming
}

// SendMessage sends msg and yields the agent's response events. It streams
// when enabled and supported by the agent. Otherwise it sends once and,
// with polling enabled, re-fetches a returned task until it settles.
// Breaking out of the loop stops the stream.
func (c *Client) SendMessage(ctx context.Context, msg *a2a.Message) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		sdk, card, err := c.state()
		if err != nil {
			yield(Event{}, err)
			return
		}

		streaming := c.cfg.Streaming && card != nil && card.Capabilities.Streaming

		ctx, span := c.tracer.Start(ctx, observability.SpanSend, trace.WithAttributes(
			attribute.String(observability.AttrMessageID, msg.ID),
			attribute.String(observability.AttrContextID, msg.ContextID),
			attribute.String(observability.AttrTaskID, string(msg.TaskID)),
			attribute.Bool(observability.AttrStreaming, streaming),
		))
		defer span.End()

		tracker := NewTaskTracker()
		count := 0
		emit := func(ev a2a.Event) bool {
			out, ok := tracker.Apply(ev)
			if !ok {
				return true
			}
			count++
			c.notify(ctx, out, card)
			return yield(out, nil)
		}
		fail := func(stage string, err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.metrics.RecordError(stage)
			yield(Event{}, err)
		}
		defer func() {
			span.SetAttributes(attribute.Int(observability.AttrEventCount, count))
			if task := tracker.Current(); task != nil {
				span.SetAttributes(attribute.String(observability.AttrTaskState, string(task.Status.State)))
			}
		}()

		params := &a2a.MessageSendParams{Message: msg}

		if streaming {
			for ev, err := range sdk.SendStreamingMessage(ctx, params) {
				if err != nil {
					fail("stream", err)
					return
				}
				if !emit(ev) {
					return
				}
			}
			return
		}

		result, err := sdk.SendMessage(ctx, params)
		if err != nil {
			fail("send", err)
			return
		}

		var task *a2a.Task
		switch r := result.(type) {
		case *a2a.Task:
			task = r
			if !emit(r) {
				return
			}
		case *a2a.Message:
			if !emit(r) {
				return
			}
		}

		if !c.cfg.Polling || task == nil || isSettled(task.Status.State) {
			return
		}
		c.poll(ctx, sdk, task.ID, emit, fail)
	}
}

func (c *Client) poll(ctx context.Context, sdk *a2aclient.Client, id a2a.TaskID, emit func(a2a.Event) bool, fail func(string, error)) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fail("poll", ctx.Err())
			return
		case <-ticker.C:
		}

		task, err := sdk.GetTask(ctx, &a2a.TaskQueryParams{ID: id})
		if err != nil {
			fail("poll", fmt.Errorf("failed to poll task %s: %w", id, err))
			return
		}
		if !emit(task) || isSettled(task.Status.State) {
			return
		}
	}
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, id string) (*a2a.Task, error) {
	sdk, _, err := c.state()
	if err != nil {
		return nil, err
	}
	return sdk.GetTask(ctx, &a2a.TaskQueryParams{ID: a2a.TaskID(id)})
}

// CancelTask asks the agent to cancel a task.
func (c *Client) CancelTask(ctx context.Context, id string) (*a2a.Task, error) {
	sdk, _, err := c.state()
	if err != nil {
		return nil, err
	}
	return sdk.CancelTask(ctx, &a2a.TaskIDParams{ID: a2a.TaskID(id)})
}

// Resubscribe reattaches to the event stream of a running task.
func (c *Client) Resubscribe(ctx context.Context, id string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		sdk, card, err := c.state()
		if err != nil {
			yield(Event{}, err)
			return
		}
		if card == nil || !card.Capabilities.Streaming {
			yield(Event{}, ErrStreamingUnsupported)
			return
		}

		tracker := NewTaskTracker()
		for ev, err := range sdk.ResubscribeToTask(ctx, &a2a.TaskIDParams{ID: a2a.TaskID(id)}) {
			if err != nil {
				c.metrics.RecordError("stream")
				yield(Event{}, err)
				return
			}
			out, ok := tracker.Apply(ev)
			if !ok {
				continue
			}
			c.notify(ctx, out, card)
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Close releases the SDK client. Calling it more than once is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.sdk == nil {
		return nil
	}
	if err := c.sdk.Destroy(); err != nil {
		return fmt.Errorf("failed to close a2a client: %w", err)
	}
	return nil
}
