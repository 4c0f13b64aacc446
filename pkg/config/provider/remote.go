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
	"strings"
	"time"
)

// Default endpoints used when a remote URL has no host part.
const (
	DefaultConsulAddress  = "localhost:8500"
	DefaultEtcdEndpoint   = "localhost:2379"
	DefaultZookeeperAddrs = "localhost:2181"
)

// retryDelay is the pause between failed watch attempts.
const retryDelay = time.Second

// RemoteSource is a parsed remote config URL such as
// consul://host:8500/a2aprobe/config or etcd://h1:2379,h2:2379/a2aprobe.
type RemoteSource struct {
	Type      Type
	Endpoints []string
	Key       string
}

var remoteSchemes = map[string]Type{
	"consul":    TypeConsul,
	"etcd":      TypeEtcd,
	"zk":        TypeZookeeper,
	"zookeeper": TypeZookeeper,
}

// IsRemote reports whether path names a remote config source.
func IsRemote(path string) bool {
	scheme, _, ok := strings.Cut(path, "://")
	if !ok {
		return false
	}
	_, known := remoteSchemes[strings.ToLower(scheme)]
	return known
}

// ParseRemote splits a remote config URL into its type, endpoints and key.
// The endpoint list is comma separated; an empty one selects the default
// local endpoint for the type.
func ParseRemote(path string) (RemoteSource, error) {
	scheme, rest, ok := strings.Cut(path, "://")
	if !ok {
		return RemoteSource{}, fmt.Errorf("not a remote config URL: %s", path)
	}
	typ, known := remoteSchemes[strings.ToLower(scheme)]
	if !known {
		return RemoteSource{}, fmt.Errorf("unknown config scheme: %s", scheme)
	}

	hosts, key, _ := strings.Cut(rest, "/")
	if typ == TypeZookeeper {
		// znode paths are absolute
		key = "/" + key
	}
	if strings.Trim(key, "/") == "" {
		return RemoteSource{}, fmt.Errorf("%s config URL needs a key: %s", typ, path)
	}

	var endpoints []string
	for _, h := range strings.Split(hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			endpoints = append(endpoints, h)
		}
	}
	if len(endpoints) == 0 {
		switch typ {
		case TypeConsul:
			endpoints = []string{DefaultConsulAddress}
		case TypeEtcd:
			endpoints = []string{DefaultEtcdEndpoint}
		case TypeZookeeper:
			endpoints = []string{DefaultZookeeperAddrs}
		}
	}

	return RemoteSource{Type: typ, Endpoints: endpoints, Key: key}, nil
}

func newRemote(path string) (Provider, error) {
	src, err := ParseRemote(path)
	if err != nil {
		return nil, err
	}
	switch src.Type {
	case TypeConsul:
		return NewConsulProvider(src.Endpoints[0], src.Key)
	case TypeEtcd:
		return NewEtcdProvider(src.Endpoints, src.Key)
	default:
		return NewZookeeperProvider(src.Endpoints, src.Key)
	}
}

// notify queues a change signal unless one is already pending.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// sleep waits d or until ctx is done. It reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
