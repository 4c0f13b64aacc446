// Package httpclient builds the *http.Client shared by the agent card
// resolver and the JSON-RPC transport: TLS settings, static headers and
// retries for idempotent requests.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"
)

type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	ConservativeRetry
	SmartRetry
)

type options struct {
	base       http.RoundTripper
	timeout    time.Duration
	headers    map[string]string
	tls        *TLSConfig
	maxRetries int
	baseDelay  time.Duration
	strategy   func(int) RetryStrategy
}

type Option func(*options)

// WithBaseTransport replaces the innermost round tripper. TLS settings are
// ignored when set.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithTimeout bounds connection setup and the wait for response headers.
// Response bodies are not bounded so that event streams can stay open.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHeaders adds headers to every request that does not already set them.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

func WithTLS(cfg *TLSConfig) Option {
	return func(o *options) {
		o.tls = cfg
	}
}

func WithMaxRetries(max int) Option {
	return func(o *options) {
		o.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(o *options) {
		o.baseDelay = delay
	}
}

func WithRetryStrategy(fn func(statusCode int) RetryStrategy) Option {
	return func(o *options) {
		o.strategy = fn
	}
}

// New returns an HTTP client configured with opts.
func New(opts ...Option) (*http.Client, error) {
	o := &options{
		timeout:   30 * time.Second,
		baseDelay: 500 * time.Millisecond,
		strategy:  DefaultRetryStrategy,
	}
	for _, opt := range opts {
		opt(o)
	}

	base := o.base
	if base == nil {
		transport, err := ConfigureTLS(o.tls)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyFromEnvironment
		transport.DialContext = (&net.Dialer{Timeout: o.timeout, KeepAlive: 30 * time.Second}).DialContext
		transport.ResponseHeaderTimeout = o.timeout
		transport.TLSHandshakeTimeout = 10 * time.Second
		transport.MaxIdleConns = 10
		transport.IdleConnTimeout = 90 * time.Second
		base = transport
	}

	return &http.Client{
		Transport: &Transport{
			Base:       base,
			Headers:    o.headers,
			MaxRetries: o.maxRetries,
			BaseDelay:  o.baseDelay,
			Strategy:   o.strategy,
		},
	}, nil
}

func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Transport injects static headers and retries idempotent requests.
type Transport struct {
	Base       http.RoundTripper
	Headers    map[string]string
	MaxRetries int
	BaseDelay  time.Duration
	Strategy   func(int) RetryStrategy
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.Headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.Headers {
			if req.Header.Get(k) == "" {
				req.Header.Set(k, v)
			}
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.MaxRetries <= 0 || !idempotent(req.Method) {
		return base.RoundTrip(req)
	}

	strategy := t.Strategy
	if strategy == nil {
		strategy = DefaultRetryStrategy
	}

	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(req)

		s := ConservativeRetry
		if err == nil {
			s = strategy(resp.StatusCode)
			if s == NoRetry {
				return resp, nil
			}
		}

		if attempt >= t.MaxRetries {
			if err != nil {
				return nil, &RetryableError{
					Message: fmt.Sprintf("max HTTP retries (%d) exceeded", t.MaxRetries),
					Err:     err,
				}
			}
			return resp, nil
		}

		delay := t.delay(s, attempt, resp)
		if resp != nil {
			_ = resp.Body.Close()
		}
		slog.Debug("Retrying request", "url", req.URL.String(), "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

func (t *Transport) delay(strategy RetryStrategy, attempt int, resp *http.Response) time.Duration {
	if strategy == SmartRetry && resp != nil {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := time.ParseDuration(after + "s"); err == nil && secs > 0 {
				return secs
			}
		}
	}
	exp := time.Duration(math.Pow(2, float64(attempt))) * t.BaseDelay
	return exp + exp/10
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == ""
}
