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

package main

import (
	"fmt"
	"os"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/logger"
)

const (
	// LogFileEnvVar is the environment variable name for log file path
	LogFileEnvVar = "LOG_FILE"
	// LogLevelEnvVar is the environment variable name for log level
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFormatEnvVar is the environment variable name for log format
	LogFormatEnvVar = "LOG_FORMAT"
	// DefaultLogFormat is the default log format
	DefaultLogFormat = "simple"
	// DefaultLogLevel keeps the console quiet so probe output stays readable.
	DefaultLogLevel = "warn"
)

// logSettings records where the active logger settings came from.
type logSettings struct {
	level, file, format string

	// explicit is set when a flag or env var chose any setting, which then
	// wins over the config file.
	explicit bool
}

var activeLog logSettings

// initLoggerFromCLI initializes the logger from CLI flags and environment variables.
// Priority: CLI flags > env vars > defaults
func initLoggerFromCLI(cliLogLevel, cliLogFile, cliLogFormat string) (func(), error) {
	s := logSettings{
		level:  firstNonEmpty(cliLogLevel, os.Getenv(LogLevelEnvVar)),
		file:   firstNonEmpty(cliLogFile, os.Getenv(LogFileEnvVar)),
		format: firstNonEmpty(cliLogFormat, os.Getenv(LogFormatEnvVar)),
	}
	s.explicit = s.level != "" || s.file != "" || s.format != ""

	cleanup, err := applyLogSettings(s)
	if err != nil {
		return nil, err
	}
	activeLog = s
	return cleanup, nil
}

// initLoggerFromConfig re-initializes the logger from the config file unless
// flags or env vars already chose the settings. It returns a nil cleanup when
// nothing changed.
func initLoggerFromConfig(cfg *config.LoggerConfig) (func(), error) {
	if cfg == nil || activeLog.explicit {
		return nil, nil
	}
	if cfg.Level == "" && cfg.File == "" && cfg.Format == "" {
		return nil, nil
	}

	s := logSettings{level: cfg.Level, file: cfg.File, format: cfg.Format}
	cleanup, err := applyLogSettings(s)
	if err != nil {
		return nil, err
	}
	activeLog = s
	return cleanup, nil
}

func applyLogSettings(s logSettings) (func(), error) {
	level, err := logger.ParseLevel(firstNonEmpty(s.level, DefaultLogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if s.file != "" {
		file, cleanupFn, err := logger.OpenLogFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, firstNonEmpty(s.format, DefaultLogFormat))
	return cleanup, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
