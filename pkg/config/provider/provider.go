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

// Package provider defines where probe configuration bytes come from.
package provider

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Type identifies the config source type.
type Type string

const (
	TypeFile      Type = "file"
	TypeStdin     Type = "stdin"
	TypeBytes     Type = "bytes"
	TypeConsul    Type = "consul"
	TypeEtcd      Type = "etcd"
	TypeZookeeper Type = "zookeeper"
)

// Provider abstracts config sources.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Type returns the provider type for logging/debugging.
	Type() Type

	// Load reads raw config bytes from the source.
	Load(ctx context.Context) ([]byte, error)

	// Watch signals on the returned channel whenever the source changes.
	// Cancel the context to stop watching.
	// Returns a nil channel if watching is not supported.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases any resources held by the provider.
	Close() error
}

// New creates a provider for path: a file, "-" for stdin (read once), or a
// consul://, etcd:// or zk:// URL.
func New(path string) (Provider, error) {
	switch {
	case path == "":
		return nil, fmt.Errorf("config path is required")
	case IsRemote(path):
		return newRemote(path)
	case path == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read config from stdin: %w", err)
		}
		return &BytesProvider{data: data, typ: TypeStdin}, nil
	default:
		return NewFileProvider(path)
	}
}

// BytesProvider serves a fixed in-memory document. It never changes.
type BytesProvider struct {
	data []byte
	typ  Type
}

// NewBytesProvider wraps data.
func NewBytesProvider(data []byte) *BytesProvider {
	return &BytesProvider{data: data, typ: TypeBytes}
}

func (p *BytesProvider) Type() Type { return p.typ }

func (p *BytesProvider) Load(context.Context) ([]byte, error) {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out, nil
}

func (p *BytesProvider) Watch(context.Context) (<-chan struct{}, error) { return nil, nil }

func (p *BytesProvider) Close() error { return nil }

var _ Provider = (*BytesProvider)(nil)
