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
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/message"
)

// Scenario is one message sent to the agent.
type Scenario struct {
	Name      string
	Parts     []a2a.Part
	ContextID string
	TaskID    string

	// ExpectEcho fails the scenario unless every text part sent comes back
	// verbatim in a received text part.
	ExpectEcho bool
}

// Message builds the user message for the scenario with a fresh id.
func (s Scenario) Message() *a2a.Message {
	var opts []message.Option
	if s.ContextID != "" {
		opts = append(opts, message.WithContextID(s.ContextID))
	}
	if s.TaskID != "" {
		opts = append(opts, message.WithTaskID(s.TaskID))
	}
	return message.User(s.Parts, opts...)
}

// DefaultSuite returns the three canned demo messages.
func DefaultSuite() []Scenario {
	return []Scenario{
		{
			Name:  "Sending simple text message",
			Parts: []a2a.Part{message.Text("Hello from Go a2a-client!")},
		},
		{
			Name: "Sending multi-part message",
			Parts: []a2a.Part{
				message.Text("This is a test with multiple parts:"),
				message.Data(map[string]any{"test": true, "client": "Go a2a-sdk"}),
				message.Text("End of message"),
			},
			ContextID: "ctx-123",
		},
		{
			Name:      "Sending message with task ID",
			Parts:     []a2a.Part{message.Text("Message with task context")},
			ContextID: "ctx-123",
			TaskID:    "task-456",
		},
	}
}

// FromConfig returns the configured scenarios, or the default suite when
// none are configured. File parts with a path are read and embedded.
func FromConfig(cfg *config.RunConfig) ([]Scenario, error) {
	if cfg == nil || len(cfg.Scenarios) == 0 {
		return DefaultSuite(), nil
	}

	scenarios := make([]Scenario, 0, len(cfg.Scenarios))
	for i, sc := range cfg.Scenarios {
		parts := make([]a2a.Part, 0, len(sc.Parts))
		for j, pc := range sc.Parts {
			part, err := partFromConfig(pc)
			if err != nil {
				return nil, fmt.Errorf("scenario %d (%s) part %d: %w", i+1, sc.Name, j+1, err)
			}
			parts = append(parts, part)
		}
		scenarios = append(scenarios, Scenario{
			Name:       sc.Name,
			Parts:      parts,
			ContextID:  sc.ContextID,
			TaskID:     sc.TaskID,
			ExpectEcho: sc.ExpectEcho,
		})
	}
	return scenarios, nil
}

func partFromConfig(pc config.PartConfig) (a2a.Part, error) {
	switch {
	case pc.Text != "":
		return message.Text(pc.Text), nil
	case pc.Data != nil:
		return message.Data(pc.Data), nil
	case pc.File != nil:
		f := pc.File
		if f.URI != "" {
			return message.FileURI(f.Name, f.MimeType, f.URI), nil
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		name := f.Name
		if name == "" {
			name = filepath.Base(f.Path)
		}
		mimeType := f.MimeType
		if mimeType == "" {
			mimeType = mime.TypeByExtension(filepath.Ext(f.Path))
		}
		return message.FileBytes(name, mimeType, data), nil
	default:
		return nil, fmt.Errorf("part has no content")
	}
}
