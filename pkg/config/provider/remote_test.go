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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemote(t *testing.T) {
	tests := []struct {
		name string
		path string
		want RemoteSource
	}{
		{
			name: "consul",
			path: "consul://10.0.0.1:8500/a2aprobe/config",
			want: RemoteSource{Type: TypeConsul, Endpoints: []string{"10.0.0.1:8500"}, Key: "a2aprobe/config"},
		},
		{
			name: "consul default address",
			path: "consul:///a2aprobe/config",
			want: RemoteSource{Type: TypeConsul, Endpoints: []string{DefaultConsulAddress}, Key: "a2aprobe/config"},
		},
		{
			name: "etcd cluster",
			path: "etcd://h1:2379, h2:2379/probe",
			want: RemoteSource{Type: TypeEtcd, Endpoints: []string{"h1:2379", "h2:2379"}, Key: "probe"},
		},
		{
			name: "zookeeper paths are absolute",
			path: "zk://zk1:2181/a2aprobe/config",
			want: RemoteSource{Type: TypeZookeeper, Endpoints: []string{"zk1:2181"}, Key: "/a2aprobe/config"},
		},
		{
			name: "scheme is case insensitive",
			path: "ZooKeeper:///cfg",
			want: RemoteSource{Type: TypeZookeeper, Endpoints: []string{DefaultZookeeperAddrs}, Key: "/cfg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRemote(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsRemote(tt.path))
		})
	}
}

func TestParseRemote_Errors(t *testing.T) {
	_, err := ParseRemote("consul://localhost:8500")
	assert.ErrorContains(t, err, "needs a key")

	_, err = ParseRemote("zk://localhost:2181/")
	assert.ErrorContains(t, err, "needs a key")

	_, err = ParseRemote("redis://localhost/key")
	assert.ErrorContains(t, err, "unknown config scheme")

	_, err = ParseRemote("probe.yaml")
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.False(t, IsRemote("probe.yaml"))
	assert.False(t, IsRemote("./configs/probe.yaml"))
	assert.False(t, IsRemote("-"))
	assert.False(t, IsRemote("https://example.com/probe.yaml"))
	assert.True(t, IsRemote("etcd://localhost:2379/probe"))
}

func TestNew_RemoteWithoutKey(t *testing.T) {
	_, err := New("consul://localhost:8500")
	assert.ErrorContains(t, err, "needs a key")
}

func TestNotify_Coalesces(t *testing.T) {
	ch := make(chan struct{}, 1)
	notify(ch)
	notify(ch)
	assert.Len(t, ch, 1)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
