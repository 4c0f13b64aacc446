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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsul serves a single KV key the way the Consul HTTP API does,
// including blocking queries on ?index=.
type fakeConsul struct {
	key string

	mu      sync.Mutex
	value   []byte
	index   uint64
	changed chan struct{}
}

func newFakeConsul(t *testing.T, key string, value []byte) (*fakeConsul, string) {
	f := &fakeConsul{key: key, value: value, index: 7, changed: make(chan struct{})}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, strings.TrimPrefix(srv.URL, "http://")
}

func (f *fakeConsul) set(value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	f.index++
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *fakeConsul) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/kv/"+f.key {
		w.Header().Set("X-Consul-Index", "1")
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	index, changed := f.index, f.changed
	f.mu.Unlock()

	if wait, _ := strconv.ParseUint(r.URL.Query().Get("index"), 10, 64); wait != 0 && wait >= index {
		select {
		case <-changed:
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	pairs := []map[string]any{{
		"Key":         f.key,
		"Value":       f.value,
		"ModifyIndex": f.index,
		"CreateIndex": 1,
	}}
	index = f.index
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Consul-Index", strconv.FormatUint(index, 10))
	w.Header().Set("X-Consul-LastContact", "0")
	w.Header().Set("X-Consul-KnownLeader", "true")
	_ = json.NewEncoder(w).Encode(pairs)
}

func TestConsulProvider_Load(t *testing.T) {
	_, addr := newFakeConsul(t, "a2aprobe/config", []byte("run:\n  max_events: 4\n"))

	p, err := New("consul://" + addr + "/a2aprobe/config")
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, TypeConsul, p.Type())

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run:\n  max_events: 4\n", string(data))
}

func TestConsulProvider_LoadMissing(t *testing.T) {
	_, addr := newFakeConsul(t, "a2aprobe/config", nil)

	p, err := NewConsulProvider(addr, "other/key")
	require.NoError(t, err)

	_, err = p.Load(context.Background())
	assert.ErrorContains(t, err, "consul key other/key not found")
}

func TestConsulProvider_WatchSignalsOnChange(t *testing.T) {
	fake, addr := newFakeConsul(t, "a2aprobe/config", []byte("a: 1\n"))

	p, err := NewConsulProvider(addr, "/a2aprobe/config")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	_, err = p.Watch(ctx)
	assert.ErrorContains(t, err, "already watching")

	// Changes made before the first query primes the index go unnoticed,
	// so keep changing until one is signalled.
	deadline := time.After(5 * time.Second)
	for signalled := false; !signalled; {
		fake.set([]byte("a: 2\n"))
		select {
		case <-ch:
			signalled = true
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change signal")
		}
	}

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a: 2\n", string(data))

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
