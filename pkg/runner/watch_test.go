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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/config/provider"
)

func writeConfig(t *testing.T, path string, maxEvents int) {
	t.Helper()
	data := fmt.Sprintf("server:\n  url: http://localhost:8080\nrun:\n  max_events: %d\n", maxEvents)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}

func TestWatch_RerunsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	writeConfig(t, path, 3)

	p, err := provider.NewFileProvider(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan int, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(_ context.Context, cfg *config.Config) error {
			runs <- cfg.Run.MaxEvents
			return errors.New("run failures keep the watch alive")
		})
	}()

	select {
	case n := <-runs:
		assert.Equal(t, 3, n)
	case <-time.After(5 * time.Second):
		t.Fatal("initial run did not happen")
	}

	// The watcher starts concurrently with the first run; keep writing
	// until a rerun is observed.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
rerun:
	for {
		select {
		case n := <-runs:
			assert.Equal(t, 7, n)
			break rerun
		case <-tick.C:
			writeConfig(t, path, 7)
		case <-deadline:
			t.Fatal("config change did not trigger a rerun")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_InvalidInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	writeConfig(t, path, -1)

	p, err := provider.NewFileProvider(path)
	require.NoError(t, err)

	err = Watch(context.Background(), p, func(context.Context, *config.Config) error {
		t.Fatal("run must not be called")
		return nil
	})
	assert.ErrorContains(t, err, "run.max_events")
}

func TestWatch_StaticProvider(t *testing.T) {
	p := provider.NewBytesProvider([]byte("server:\n  url: http://localhost:9999\n"))

	ctx, cancel := context.WithCancel(context.Background())
	var got string
	err := Watch(ctx, p, func(_ context.Context, cfg *config.Config) error {
		got = cfg.Server.URL
		cancel()
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", got)
}
