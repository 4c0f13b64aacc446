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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: http://x\n"), 0o600))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "http://x")
	assert.Equal(t, TypeFile, p.Type())
	assert.True(t, filepath.IsAbs(p.Path()))
}

func TestFileProvider_LoadMissing(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	_, err = p.Load(context.Background())
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestFileProvider_WatchSignalsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := p.Watch(ctx)
	require.NoError(t, err)
	require.NotNil(t, changes)

	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o600))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestFileProvider_WatchAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Watch(context.Background())
	assert.Error(t, err)
}

func TestBytesProvider(t *testing.T) {
	p := NewBytesProvider([]byte("x: y"))

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x: y", string(data))

	data[0] = 'z'
	again, _ := p.Load(context.Background())
	assert.Equal(t, "x: y", string(again), "Load must return a copy")

	ch, err := p.Watch(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, ch)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
