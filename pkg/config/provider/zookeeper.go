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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
)

const zkSessionTimeout = 10 * time.Second

// ZookeeperProvider loads config from a znode and watches it.
type ZookeeperProvider struct {
	conn *zk.Conn
	path string

	closeOnce sync.Once
}

// NewZookeeperProvider starts a session with servers. The connection is
// established in the background.
func NewZookeeperProvider(servers []string, path string) (*ZookeeperProvider, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("zookeeper servers are required")
	}
	conn, _, err := zk.Connect(servers, zkSessionTimeout, zk.WithLogger(zkLogger{}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return &ZookeeperProvider{conn: conn, path: path}, nil
}

// Type returns TypeZookeeper.
func (p *ZookeeperProvider) Type() Type {
	return TypeZookeeper
}

// Load reads the znode data.
func (p *ZookeeperProvider) Load(ctx context.Context) ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if errors.Is(err, zk.ErrNoNode) {
		return nil, fmt.Errorf("zookeeper node %s not found", p.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read zookeeper node %s: %w", p.path, err)
	}
	return data, nil
}

// Watch signals when the znode is created or its data changes. zk watches
// fire once, so each one is re-armed.
func (p *ZookeeperProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, ch)

	slog.Debug("Watching zookeeper node", "path", p.path)
	return ch, nil
}

func (p *ZookeeperProvider) watchLoop(ctx context.Context, ch chan<- struct{}) {
	defer close(ch)

	for {
		var events <-chan zk.Event
		var err error
		if _, _, events, err = p.conn.GetW(p.path); errors.Is(err, zk.ErrNoNode) {
			_, _, events, err = p.conn.ExistsW(p.path)
		}
		if err != nil {
			if errors.Is(err, zk.ErrClosing) || errors.Is(err, zk.ErrConnectionClosed) {
				return
			}
			slog.Warn("Zookeeper watch failed", "path", p.path, "error", err)
			if !sleep(ctx, retryDelay) {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Type {
			case zk.EventNodeDataChanged, zk.EventNodeCreated:
				notify(ch)
				slog.Debug("Zookeeper node changed", "path", p.path)
			case zk.EventNodeDeleted:
				slog.Warn("Zookeeper node was removed", "path", p.path)
			}
		}
	}
}

// Close ends the session.
func (p *ZookeeperProvider) Close() error {
	p.closeOnce.Do(p.conn.Close)
	return nil
}

// zkLogger routes the client's chatter to slog at debug level.
type zkLogger struct{}

func (zkLogger) Printf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "zookeeper")
}

var _ Provider = (*ZookeeperProvider)(nil)
