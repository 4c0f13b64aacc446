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

package client

import (
	"maps"
	"slices"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/httpclient"
)

// Config controls how the client talks to the agent.
type Config struct {
	// Streaming uses message/stream when the agent card advertises it.
	Streaming bool

	// Polling re-fetches a non-terminal task returned by a non-streaming
	// send every PollInterval until it settles.
	Polling      bool
	PollInterval time.Duration

	// Timeout bounds connection setup and response headers. It never cuts
	// off an open event stream.
	Timeout time.Duration

	// Transports the client may use, in preference order.
	Transports []a2a.TransportProtocol

	AcceptedOutputModes []string
	Extensions          []string

	// Headers are added to every HTTP request, card fetch included.
	Headers map[string]string

	// CardPath overrides the well-known agent card path.
	CardPath string

	TLS        *httpclient.TLSConfig
	MaxRetries int
}

// DefaultConfig returns streaming on, polling off, JSON-RPC only.
func DefaultConfig() Config {
	return Config{
		Streaming:    true,
		Polling:      false,
		PollInterval: config.DefaultPollInterval,
		Timeout:      config.DefaultTimeout,
		Transports:   []a2a.TransportProtocol{a2a.TransportProtocolJSONRPC},
	}
}

// FromConfig maps the probe configuration onto a client Config.
func FromConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}

	c.Streaming = cfg.Client.StreamingEnabled()
	c.Polling = cfg.Client.Polling
	if cfg.Client.PollInterval > 0 {
		c.PollInterval = cfg.Client.PollInterval
	}
	if cfg.Server.Timeout > 0 {
		c.Timeout = cfg.Server.Timeout
	}
	if len(cfg.Client.Transports) > 0 {
		c.Transports = c.Transports[:0]
		for _, t := range cfg.Client.Transports {
			c.Transports = append(c.Transports, a2a.TransportProtocol(config.NormalizeTransport(t)))
		}
	}
	c.AcceptedOutputModes = slices.Clone(cfg.Client.AcceptedOutputModes)
	c.Extensions = slices.Clone(cfg.Client.Extensions)
	c.Headers = maps.Clone(cfg.Server.Headers)
	c.CardPath = cfg.Server.CardPath
	c.TLS = cfg.Server.TLS
	c.MaxRetries = cfg.Server.MaxRetries
	return c
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = config.DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = config.DefaultTimeout
	}
	if len(c.Transports) == 0 {
		c.Transports = []a2a.TransportProtocol{a2a.TransportProtocolJSONRPC}
	}
	return c
}

func (c Config) allows(t a2a.TransportProtocol) bool {
	return slices.Contains(c.Transports, t)
}
