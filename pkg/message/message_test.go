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

package message

import (
	"encoding/base64"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		m := User([]a2a.Part{Text("hi")})
		require.NotEmpty(t, m.ID)
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestNew_Options(t *testing.T) {
	m := User(
		[]a2a.Part{Text("Message with task context")},
		WithContextID("ctx-123"),
		WithTaskID("task-456"),
		WithMetadata(map[string]any{"source": "probe"}),
		WithReferenceTasks("task-1", "task-2"),
		WithExtensions("https://example.com/ext/v1"),
	)

	assert.Equal(t, a2a.MessageRoleUser, m.Role)
	assert.Equal(t, "ctx-123", m.ContextID)
	assert.Equal(t, a2a.TaskID("task-456"), m.TaskID)
	assert.Equal(t, "probe", m.Metadata["source"])
	assert.Equal(t, []a2a.TaskID{"task-1", "task-2"}, m.ReferenceTasks)
	assert.Equal(t, []string{"https://example.com/ext/v1"}, m.Extensions)
}

func TestNew_CopiesParts(t *testing.T) {
	parts := []a2a.Part{Text("a"), Text("b")}
	m := User(parts)

	parts[0] = Text("changed")
	assert.Equal(t, "a", m.Parts[0].(a2a.TextPart).Text)
}

func TestData_CopiesMap(t *testing.T) {
	src := map[string]any{"test": true, "client": "Go a2a-sdk"}
	p := Data(src).(a2a.DataPart)

	src["test"] = false
	assert.Equal(t, true, p.Data["test"])
	assert.Equal(t, "Go a2a-sdk", p.Data["client"])
}

func TestFileParts(t *testing.T) {
	fb := FileBytes("note.txt", "text/plain", []byte("hello")).(a2a.FilePart)
	content, ok := fb.File.(a2a.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "note.txt", content.Name)
	assert.Equal(t, "text/plain", content.MimeType)
	decoded, err := base64.StdEncoding.DecodeString(content.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(decoded))

	fu := FileURI("logo.png", "image/png", "https://example.com/logo.png").(a2a.FilePart)
	uri, ok := fu.File.(a2a.FileURI)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/logo.png", uri.URI)
}

func TestTextOf(t *testing.T) {
	parts := []a2a.Part{
		Text("This is a test with multiple parts:"),
		Data(map[string]any{"test": true}),
		&a2a.TextPart{Text: "End of message"},
	}

	assert.Equal(t, "This is a test with multiple parts:\nEnd of message", TextOf(parts))
	assert.Equal(t, []string{"This is a test with multiple parts:", "End of message"}, Texts(parts))
	assert.Empty(t, TextOf(nil))
}
