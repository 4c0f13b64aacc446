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

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"
)

// consulWaitTime bounds one blocking query.
const consulWaitTime = 5 * time.Minute

// ConsulProvider loads config from a Consul KV key and watches it with
// blocking queries.
type ConsulProvider struct {
	kv  *api.KV
	key string

	mu       sync.Mutex
	watching bool
}

// NewConsulProvider creates a provider for key on the agent at address.
// Token and TLS settings come from the usual CONSUL_* environment.
func NewConsulProvider(address, key string) (*ConsulProvider, error) {
	cfg := api.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &ConsulProvider{kv: client.KV(), key: strings.TrimPrefix(key, "/")}, nil
}

// Type returns TypeConsul.
func (p *ConsulProvider) Type() Type {
	return TypeConsul
}

// Load reads the value stored at the key.
func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.kv.Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read consul key %s: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %s not found", p.key)
	}
	return pair.Value, nil
}

// Watch signals whenever the key's modify index moves.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watching {
		return nil, fmt.Errorf("already watching consul key %s", p.key)
	}
	p.watching = true

	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, ch)

	slog.Debug("Watching consul key", "key", p.key)
	return ch, nil
}

func (p *ConsulProvider) watchLoop(ctx context.Context, ch chan<- struct{}) {
	defer close(ch)

	var index uint64
	primed := false
	for {
		opts := (&api.QueryOptions{WaitIndex: index, WaitTime: consulWaitTime}).WithContext(ctx)
		_, meta, err := p.kv.Get(p.key, opts)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("Consul watch failed", "key", p.key, "error", err)
			if !sleep(ctx, retryDelay) {
				return
			}
			continue
		}

		if primed && meta.LastIndex != index {
			notify(ch)
			slog.Debug("Consul key changed", "key", p.key, "index", meta.LastIndex)
		}
		primed = true
		index = meta.LastIndex

		// index 0 would turn the next query into a non-blocking one
		if index == 0 && !sleep(ctx, retryDelay) {
			return
		}
	}
}

// Close is a no-op; the HTTP client holds no long-lived resources.
func (p *ConsulProvider) Close() error {
	return nil
}

var _ Provider = (*ConsulProvider)(nil)
