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

// Package a2atest runs an in-process A2A echo agent for tests.
//
//	srv := a2atest.NewServer(t)
//	c, err := client.Connect(ctx, srv.URL, client.DefaultConfig())
package a2atest

import (
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a running echo agent.
type Server struct {
	*httptest.Server

	Card  *a2a.AgentCard
	Store *TaskStore

	executor *EchoExecutor

	mu       sync.Mutex
	requests []Request
	required map[string]string
}

// Request is what the server saw of one HTTP request.
type Request struct {
	Method string
	Path   string
	Header http.Header
}

// Option configures NewServer.
type Option func(*options)

type options struct {
	mode       Mode
	floodCount int
	streaming  bool
	cardPath   string
	schemes    a2a.NamedSecuritySchemes
	security   []a2a.SecurityRequirements
	tasks      []*a2a.Task
	strict     bool
	required   map[string]string
	name       string
}

// WithMode selects how the executor answers.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithFloodCount sets how many working updates ModeFlood emits.
func WithFloodCount(n int) Option {
	return func(o *options) { o.floodCount = n }
}

// WithStreaming sets the card's streaming capability.
func WithStreaming(enabled bool) Option {
	return func(o *options) { o.streaming = enabled }
}

// WithCardPath serves the card at path instead of the well-known location.
func WithCardPath(path string) Option {
	return func(o *options) { o.cardPath = path }
}

// WithBearerAuth advertises a bearer scheme named name in the card.
func WithBearerAuth(name string) Option {
	return func(o *options) {
		if o.schemes == nil {
			o.schemes = a2a.NamedSecuritySchemes{}
		}
		o.schemes[a2a.SecuritySchemeName(name)] = a2a.HTTPAuthSecurityScheme{
			Scheme:       "bearer",
			BearerFormat: "JWT",
		}
		o.security = append(o.security, a2a.SecurityRequirements{
			a2a.SecuritySchemeName(name): a2a.SecuritySchemeScopes{},
		})
	}
}

// WithAPIKeyAuth advertises a header API key scheme named name.
func WithAPIKeyAuth(name, header string) Option {
	return func(o *options) {
		if o.schemes == nil {
			o.schemes = a2a.NamedSecuritySchemes{}
		}
		o.schemes[a2a.SecuritySchemeName(name)] = a2a.APIKeySecurityScheme{
			Name: header,
			In:   "header",
		}
		o.security = append(o.security, a2a.SecurityRequirements{
			a2a.SecuritySchemeName(name): a2a.SecuritySchemeScopes{},
		})
	}
}

// WithTask seeds the task store, so messages may reference the task.
func WithTask(task *a2a.Task) Option {
	return func(o *options) { o.tasks = append(o.tasks, task) }
}

// WithStrictTasks rejects messages that name a task the store does not
// hold. By default such a task is created on first reference.
func WithStrictTasks() Option {
	return func(o *options) { o.strict = true }
}

// WithRequiredHeader rejects JSON-RPC calls whose header key does not equal
// value with 401.
func WithRequiredHeader(key, value string) Option {
	return func(o *options) {
		if o.required == nil {
			o.required = map[string]string{}
		}
		o.required[http.CanonicalHeaderKey(key)] = value
	}
}

// WithName overrides the agent name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// NewServer starts an echo agent and stops it when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	o := &options{
		streaming:  true,
		floodCount: 20,
		cardPath:   a2asrv.WellKnownAgentCardPath,
		name:       "Echo Agent",
	}
	for _, opt := range opts {
		opt(o)
	}

	hs := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + hs.Listener.Addr().String()

	card := &a2a.AgentCard{
		Name:               o.name,
		Description:        "Echoes every message back as an artifact",
		URL:                baseURL + "/",
		Version:            "1.0.0",
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  []string{"text", "data"},
		DefaultOutputModes: []string{"text", "data"},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Capabilities: a2a.AgentCapabilities{
			Streaming: o.streaming,
		},
		Skills: []a2a.AgentSkill{
			{
				ID:          "echo",
				Name:        "Echo",
				Description: "Returns the parts it receives",
				Tags:        []string{"echo", "test"},
			},
		},
		SecuritySchemes: o.schemes,
		Security:        o.security,
	}

	store := NewTaskStore(o.tasks...)
	executor := &EchoExecutor{Mode: o.mode, FloodCount: o.floodCount}
	var handler a2asrv.RequestHandler = a2asrv.NewHandler(executor, a2asrv.WithTaskStore(store))
	if !o.strict {
		handler = &adoptingHandler{RequestHandler: handler, store: store}
	}

	s := &Server{
		Server:   hs,
		Card:     card,
		Store:    store,
		executor: executor,
		required: o.required,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Get(o.cardPath, a2asrv.NewStaticAgentCardHandler(card).ServeHTTP)
	r.With(s.authorize).Post("/", a2asrv.NewJSONRPCHandler(handler).ServeHTTP)

	hs.Config.Handler = r
	hs.Start()
	t.Cleanup(hs.Close)

	return s
}

// adoptingHandler creates client-named tasks before the SDK loads them.
type adoptingHandler struct {
	a2asrv.RequestHandler
	store *TaskStore
}

func (h *adoptingHandler) OnSendMessage(ctx context.Context, params *a2a.MessageSendParams) (a2a.SendMessageResult, error) {
	if params != nil {
		h.store.Adopt(params.Message)
	}
	return h.RequestHandler.OnSendMessage(ctx, params)
}

func (h *adoptingHandler) OnSendMessageStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[a2a.Event, error] {
	if params != nil {
		h.store.Adopt(params.Message)
	}
	return h.RequestHandler.OnSendMessageStream(ctx, params)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, want := range s.required {
			if r.Header.Get(key) != want {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Requests returns every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RPCRequests returns the JSON-RPC requests seen so far.
func (s *Server) RPCRequests() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == http.MethodPost && !strings.HasPrefix(r.Path, "/.well-known") {
			out = append(out, r)
		}
	}
	return out
}

// Executions reports how many times the executor ran.
func (s *Server) Executions() int {
	return s.executor.Executions()
}
