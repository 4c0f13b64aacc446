// Package config defines the a2aprobe configuration file.
//
// A minimal file only names the server:
//
//	server:
//	  url: http://localhost:8080
//
// Everything else has defaults. String values may reference environment
// variables as ${VAR}, ${VAR:-default} or $VAR.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kadirpekel/a2aprobe/pkg/httpclient"
	"github.com/kadirpekel/a2aprobe/pkg/logger"
	"github.com/kadirpekel/a2aprobe/pkg/observability"
)

const (
	DefaultServerURL    = "http://localhost:8080"
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxEvents    = 10
	DefaultEnvPrefix    = "A2A_"
	DefaultJWTTTL       = 5 * time.Minute

	// DefaultHint is printed when the server refuses the connection.
	DefaultHint = "💡 Make sure the A2A server is running and listening on the configured URL."
)

// Transport names accepted in client.transports. They match the values
// used by A2A agent cards.
const (
	TransportJSONRPC = "JSONRPC"
	TransportGRPC    = "GRPC"
)

// Config is the root of the probe configuration.
type Config struct {
	Server        ServerConfig         `yaml:"server,omitempty"`
	Client        ClientConfig         `yaml:"client,omitempty"`
	Auth          AuthConfig           `yaml:"auth,omitempty"`
	Run           RunConfig            `yaml:"run,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty"`
	Logger        LoggerConfig         `yaml:"logger,omitempty"`
}

// ServerConfig describes the remote agent endpoint.
type ServerConfig struct {
	// URL is the base URL the agent card is resolved from.
	URL string `yaml:"url,omitempty"`

	// CardPath overrides the well-known agent card path.
	CardPath string `yaml:"card_path,omitempty"`

	// Headers are sent with every HTTP request.
	Headers map[string]string `yaml:"headers,omitempty"`

	Timeout    time.Duration         `yaml:"timeout,omitempty"`
	MaxRetries int                   `yaml:"max_retries,omitempty"`
	TLS        *httpclient.TLSConfig `yaml:"tls,omitempty"`
}

// ClientConfig mirrors the knobs of the A2A client.
type ClientConfig struct {
	// Streaming uses message/stream when the agent supports it.
	// Default: true
	Streaming *bool `yaml:"streaming,omitempty"`

	// Polling re-fetches non-terminal tasks returned by a non-streaming send.
	// Default: false
	Polling      bool          `yaml:"polling,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// Transports lists the transports this client may use, in preference order.
	Transports []string `yaml:"transports,omitempty"`

	AcceptedOutputModes []string `yaml:"accepted_output_modes,omitempty"`

	// Extensions are announced to the agent on every call.
	Extensions []string `yaml:"extensions,omitempty"`
}

// AuthConfig configures credentials applied according to the agent card's
// security requirements.
type AuthConfig struct {
	// Credentials maps a security scheme name to a credential.
	Credentials map[string]string `yaml:"credentials,omitempty"`

	// EnvPrefix is used to look credentials up as <prefix><SCHEME>.
	EnvPrefix string `yaml:"env_prefix,omitempty"`

	JWT *JWTConfig `yaml:"jwt,omitempty"`
}

// JWTConfig mints self-signed bearer tokens.
type JWTConfig struct {
	KeyFile  string        `yaml:"key_file"`
	Scheme   string        `yaml:"scheme,omitempty"`
	Issuer   string        `yaml:"issuer,omitempty"`
	Audience string        `yaml:"audience,omitempty"`
	Subject  string        `yaml:"subject,omitempty"`
	KeyID    string        `yaml:"key_id,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// RunConfig drives the scenario runner.
type RunConfig struct {
	// MaxEvents caps how many events are drained per message.
	// Default: 10
	MaxEvents int `yaml:"max_events,omitempty"`

	// Hint is printed when the server cannot be reached.
	Hint string `yaml:"hint,omitempty"`

	// Scenarios replaces the default suite when non-empty.
	Scenarios []ScenarioConfig `yaml:"scenarios,omitempty"`
}

// ScenarioConfig is one message to send.
type ScenarioConfig struct {
	Name      string       `yaml:"name"`
	ContextID string       `yaml:"context_id,omitempty"`
	TaskID    string       `yaml:"task_id,omitempty"`
	Parts     []PartConfig `yaml:"parts"`

	// ExpectEcho fails the scenario unless every sent text part comes back.
	ExpectEcho bool `yaml:"expect_echo,omitempty"`
}

// PartConfig holds exactly one of Text, Data or File.
type PartConfig struct {
	Text string         `yaml:"text,omitempty"`
	Data map[string]any `yaml:"data,omitempty"`
	File *FileConfig    `yaml:"file,omitempty"`
}

// FileConfig references a file by URI or embeds one read from Path.
type FileConfig struct {
	Name     string `yaml:"name,omitempty"`
	MimeType string `yaml:"mime_type,omitempty"`
	URI      string `yaml:"uri,omitempty"`
	Path     string `yaml:"path,omitempty"`
}

// LoggerConfig mirrors the --log-* flags.
type LoggerConfig struct {
	Level  string `yaml:"level,omitempty"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Client.SetDefaults()
	c.Auth.SetDefaults()
	c.Run.SetDefaults()
	c.Observability.SetDefaults()
}

func (c *ServerConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = DefaultServerURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c *ClientConfig) SetDefaults() {
	if c.Streaming == nil {
		c.Streaming = BoolPtr(true)
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if len(c.Transports) == 0 {
		c.Transports = []string{TransportJSONRPC}
	}
	for i, t := range c.Transports {
		c.Transports[i] = NormalizeTransport(t)
	}
}

func (c *AuthConfig) SetDefaults() {
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
	if c.JWT != nil && c.JWT.TTL == 0 {
		c.JWT.TTL = DefaultJWTTTL
	}
}

func (c *RunConfig) SetDefaults() {
	if c.MaxEvents == 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.Hint == "" {
		c.Hint = DefaultHint
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.URL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server.url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server.url: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("server.url: missing host"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, fmt.Errorf("server.timeout must not be negative"))
	}
	if c.Server.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("server.max_retries must not be negative"))
	}

	for _, t := range c.Client.Transports {
		switch t {
		case TransportJSONRPC, TransportGRPC:
		default:
			errs = append(errs, fmt.Errorf("client.transports: unknown transport %q", t))
		}
	}
	if c.Client.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("client.poll_interval must not be negative"))
	}

	if j := c.Auth.JWT; j != nil && j.KeyFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.key_file is required"))
	}

	if c.Run.MaxEvents < 1 {
		errs = append(errs, fmt.Errorf("run.max_events must be at least 1, got %d", c.Run.MaxEvents))
	}
	for i, s := range c.Run.Scenarios {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("run.scenarios[%d]: %w", i, err))
		}
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if c.Logger.Level != "" {
		if _, err := logger.ParseLevel(c.Logger.Level); err != nil {
			errs = append(errs, fmt.Errorf("logger.level: %w", err))
		}
	}
	if !logger.ValidFormat(c.Logger.Format) {
		errs = append(errs, fmt.Errorf("logger.format: unknown format %q", c.Logger.Format))
	}

	return errors.Join(errs...)
}

// Validate checks a single scenario.
func (s ScenarioConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Parts) == 0 {
		return fmt.Errorf("%s: at least one part is required", s.Name)
	}
	for i, p := range s.Parts {
		n := 0
		if p.Text != "" {
			n++
		}
		if p.Data != nil {
			n++
		}
		if p.File != nil {
			n++
			if p.File.URI == "" && p.File.Path == "" {
				return fmt.Errorf("%s: parts[%d].file needs uri or path", s.Name, i)
			}
		}
		if n != 1 {
			return fmt.Errorf("%s: parts[%d] must set exactly one of text, data or file", s.Name, i)
		}
	}
	return nil
}

// StreamingEnabled reports the effective streaming setting.
func (c *ClientConfig) StreamingEnabled() bool {
	return BoolValue(c.Streaming, true)
}

// NormalizeTransport maps loose spellings ("jsonrpc", "grpc") to card
// transport names.
func NormalizeTransport(t string) string {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "JSONRPC", "JSON-RPC":
		return TransportJSONRPC
	case "GRPC":
		return TransportGRPC
	default:
		return t
	}
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// BoolValue dereferences b, falling back to def when nil.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
