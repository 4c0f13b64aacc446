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

// Package message builds A2A messages.
package message

import (
	"encoding/base64"
	"maps"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
)

// Text returns a text part.
func Text(s string) a2a.Part {
	return a2a.TextPart{Text: s}
}

// Data returns a structured data part. The map is copied.
func Data(data map[string]any) a2a.Part {
	return a2a.DataPart{Data: maps.Clone(data)}
}

// FileURI returns a file part referencing uri.
func FileURI(name, mimeType, uri string) a2a.Part {
	return a2a.FilePart{File: a2a.FileURI{
		FileMeta: a2a.FileMeta{Name: name, MimeType: mimeType},
		URI:      uri,
	}}
}

// FileBytes returns a file part carrying data inline, base64 encoded.
func FileBytes(name, mimeType string, data []byte) a2a.Part {
	return a2a.FilePart{File: a2a.FileBytes{
		FileMeta: a2a.FileMeta{Name: name, MimeType: mimeType},
		Bytes:    base64.StdEncoding.EncodeToString(data),
	}}
}

// Option customizes a message built by New.
type Option func(*a2a.Message)

// WithContextID groups the message into a conversation.
func WithContextID(id string) Option {
	return func(m *a2a.Message) {
		m.ContextID = id
	}
}

// WithTaskID attaches the message to an existing task.
func WithTaskID(id string) Option {
	return func(m *a2a.Message) {
		m.TaskID = a2a.TaskID(id)
	}
}

// WithMetadata merges md into the message metadata.
func WithMetadata(md map[string]any) Option {
	return func(m *a2a.Message) {
		if len(md) == 0 {
			return
		}
		if m.Metadata == nil {
			m.Metadata = make(map[string]any, len(md))
		}
		maps.Copy(m.Metadata, md)
	}
}

// WithReferenceTasks lists tasks the message refers to.
func WithReferenceTasks(ids ...string) Option {
	return func(m *a2a.Message) {
		for _, id := range ids {
			m.ReferenceTasks = append(m.ReferenceTasks, a2a.TaskID(id))
		}
	}
}

// WithExtensions declares the extensions the message uses.
func WithExtensions(uris ...string) Option {
	return func(m *a2a.Message) {
		m.Extensions = append(m.Extensions, uris...)
	}
}

// New builds a message with a fresh id. parts is copied.
func New(role a2a.MessageRole, parts []a2a.Part, opts ...Option) *a2a.Message {
	m := &a2a.Message{
		ID:    uuid.NewString(),
		Role:  role,
		Parts: append([]a2a.Part(nil), parts...),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// User builds a user message.
func User(parts []a2a.Part, opts ...Option) *a2a.Message {
	return New(a2a.MessageRoleUser, parts, opts...)
}

// TextOf joins the text parts of parts with newlines.
func TextOf(parts []a2a.Part) string {
	var texts []string
	for _, p := range parts {
		switch tp := p.(type) {
		case a2a.TextPart:
			texts = append(texts, tp.Text)
		case *a2a.TextPart:
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Texts returns the text of every text part in order.
func Texts(parts []a2a.Part) []string {
	var texts []string
	for _, p := range parts {
		switch tp := p.(type) {
		case a2a.TextPart:
			texts = append(texts, tp.Text)
		case *a2a.TextPart:
			texts = append(texts, tp.Text)
		}
	}
	return texts
}
