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

package logger

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_SimpleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelInfo, &buf, FormatSimple)

	l.Info("connected", "agent", "echo")
	l.Debug("hidden")
	l.With("scenario", 1).Warn("slow")

	out := buf.String()
	assert.Contains(t, out, "INFO connected agent=echo\n")
	assert.Contains(t, out, "WARN slow scenario=1\n")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "\033[", "non-terminal output must not be colored")
}

func TestNew_VerboseFormatHasTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelDebug, &buf, FormatVerbose)

	l.Debug("tick")

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	// 2006/01/02 15:04:05 DEBUG tick
	fields := strings.Fields(line)
	require.Len(t, fields, 4)
	assert.Equal(t, "DEBUG", fields[2])
	assert.Equal(t, "tick", fields[3])
}

func TestNew_GroupedAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelInfo, &buf, FormatSimple)

	l.WithGroup("card").Info("resolved", "name", "echo")

	assert.Contains(t, buf.String(), "card.name=echo")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelInfo, &buf, FormatJSON)

	l.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat(""))
	assert.True(t, ValidFormat(FormatVerbose))
	assert.True(t, ValidFormat(FormatJSON))
	assert.False(t, ValidFormat("xml"))
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.log")

	f, cleanup, err := OpenLogFile(path)
	require.NoError(t, err)
	defer cleanup()

	_, err = f.WriteString("line\n")
	assert.NoError(t, err)
}
