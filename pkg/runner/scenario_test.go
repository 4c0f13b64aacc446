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
	"os"
	"path/filepath"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2aprobe/pkg/config"
)

func TestDefaultSuite(t *testing.T) {
	suite := DefaultSuite()
	require.Len(t, suite, 3)

	assert.Equal(t, "Sending simple text message", suite[0].Name)
	assert.Equal(t, []a2a.Part{a2a.TextPart{Text: "Hello from Go a2a-client!"}}, suite[0].Parts)
	assert.Empty(t, suite[0].ContextID)

	assert.Equal(t, "Sending multi-part message", suite[1].Name)
	require.Len(t, suite[1].Parts, 3)
	assert.Equal(t, a2a.TextPart{Text: "This is a test with multiple parts:"}, suite[1].Parts[0])
	assert.Equal(t, a2a.DataPart{Data: map[string]any{"test": true, "client": "Go a2a-sdk"}}, suite[1].Parts[1])
	assert.Equal(t, a2a.TextPart{Text: "End of message"}, suite[1].Parts[2])
	assert.Equal(t, "ctx-123", suite[1].ContextID)

	assert.Equal(t, "Sending message with task ID", suite[2].Name)
	assert.Equal(t, "ctx-123", suite[2].ContextID)
	assert.Equal(t, "task-456", suite[2].TaskID)
}

func TestScenario_Message(t *testing.T) {
	sc := DefaultSuite()[2]

	first := sc.Message()
	second := sc.Message()

	assert.Equal(t, a2a.MessageRoleUser, first.Role)
	assert.Equal(t, "ctx-123", first.ContextID)
	assert.Equal(t, a2a.TaskID("task-456"), first.TaskID)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestFromConfig_Default(t *testing.T) {
	for _, cfg := range []*config.RunConfig{nil, {}} {
		scenarios, err := FromConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, DefaultSuite(), scenarios)
	}
}

func TestFromConfig_Parts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o644))

	scenarios, err := FromConfig(&config.RunConfig{Scenarios: []config.ScenarioConfig{{
		Name:       "custom",
		ContextID:  "ctx-1",
		ExpectEcho: true,
		Parts: []config.PartConfig{
			{Text: "hi"},
			{Data: map[string]any{"k": "v"}},
			{File: &config.FileConfig{URI: "https://example.com/a.pdf", Name: "a.pdf", MimeType: "application/pdf"}},
			{File: &config.FileConfig{Path: path}},
		},
	}}})
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	sc := scenarios[0]
	assert.Equal(t, "custom", sc.Name)
	assert.Equal(t, "ctx-1", sc.ContextID)
	assert.True(t, sc.ExpectEcho)
	require.Len(t, sc.Parts, 4)

	assert.Equal(t, a2a.TextPart{Text: "hi"}, sc.Parts[0])

	uri, ok := sc.Parts[2].(a2a.FilePart)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a.pdf", uri.File.(a2a.FileURI).URI)

	embedded, ok := sc.Parts[3].(a2a.FilePart)
	require.True(t, ok)
	fb, ok := embedded.File.(a2a.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", fb.Name)
	assert.Contains(t, fb.MimeType, "text/plain")
	assert.NotEmpty(t, fb.Bytes)
}

func TestFromConfig_MissingFile(t *testing.T) {
	_, err := FromConfig(&config.RunConfig{Scenarios: []config.ScenarioConfig{{
		Name:  "broken",
		Parts: []config.PartConfig{{File: &config.FileConfig{Path: "/does/not/exist"}}},
	}}})
	assert.ErrorContains(t, err, "scenario 1 (broken) part 1")
}
