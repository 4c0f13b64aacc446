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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/a2aprobe/pkg/config/provider"
)

// Stage names the step of the load pipeline that failed.
type Stage string

const (
	StageRead     Stage = "read"
	StageParse    Stage = "parse"
	StageDecode   Stage = "decode"
	StageValidate Stage = "validate"
)

// LoadError is returned by Load and Parse.
type LoadError struct {
	Stage Stage
	Err   error
}

func (e *LoadError) Error() string {
	switch e.Stage {
	case StageRead:
		return fmt.Sprintf("failed to load config: %v", e.Err)
	case StageValidate:
		return fmt.Sprintf("config validation failed: %v", e.Err)
	default:
		return fmt.Sprintf("failed to %s config: %v", e.Stage, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader loads and watches configuration from a Provider.
type Loader struct {
	provider provider.Provider
	onChange func(*Config)
	baseDir  string

	last []byte
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOnChange sets a callback invoked when config changes.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// WithBaseDir resolves relative file references in the config against dir.
// File providers default to the directory of their file.
func WithBaseDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.baseDir = dir
	}
}

// NewLoader creates a Loader with the given provider.
func NewLoader(p provider.Provider, opts ...LoaderOption) *Loader {
	l := &Loader{
		provider: p,
	}
	if fp, ok := p.(*provider.FileProvider); ok {
		l.baseDir = filepath.Dir(fp.Path())
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the document from the provider and runs it through Parse,
// path resolution and Validate.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	cfg, _, err := l.load(ctx)
	return cfg, err
}

func (l *Loader) load(ctx context.Context) (*Config, []byte, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		return nil, nil, &LoadError{Stage: StageRead, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	cfg.ResolvePaths(l.baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, nil, &LoadError{Stage: StageValidate, Err: err}
	}
	l.last = data
	return cfg, data, nil
}

// Parse decodes a YAML or JSON document, expands environment variables and
// applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	rawMap, err := parseBytes(data)
	if err != nil {
		return nil, &LoadError{Stage: StageParse, Err: err}
	}

	exp := &expander{}
	expanded := exp.expandMap(rawMap)
	if len(exp.unset) > 0 {
		slog.Warn("Config references unset environment variables", "vars", exp.unset)
	}

	cfg := &Config{}
	if err := decodeConfig(expanded, cfg); err != nil {
		return nil, &LoadError{Stage: StageDecode, Err: err}
	}

	cfg.SetDefaults()
	return cfg, nil
}

// Watch reloads the configuration whenever the provider signals a change
// and hands valid results to onChange. Invalid reloads are logged and
// skipped, as are signals that leave the document unchanged. Blocks until
// ctx is cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	changes, err := l.provider.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}

	if changes == nil {
		slog.Info("Config watching not supported by provider", "type", l.provider.Type())
		<-ctx.Done()
		return ctx.Err()
	}

	slog.Info("Started watching for config changes", "type", l.provider.Type())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}

			prev := l.last
			cfg, data, err := l.load(ctx)
			if err != nil {
				slog.Error("Failed to reload config", "type", l.provider.Type(), "error", err)
				continue
			}
			if prev != nil && bytes.Equal(prev, data) {
				slog.Debug("Config unchanged, skipping reload", "type", l.provider.Type())
				continue
			}

			slog.Info("Configuration reloaded",
				"type", l.provider.Type(),
				"server", cfg.Server.URL,
				"scenarios", len(cfg.Run.Scenarios))
			if l.onChange != nil {
				l.onChange(cfg)
			}
		}
	}
}

// Close releases resources held by the loader.
func (l *Loader) Close() error {
	return l.provider.Close()
}

// Provider returns the underlying provider.
func (l *Loader) Provider() provider.Provider {
	return l.provider
}

// ResolvePaths makes relative file references absolute against dir: the
// scenario file parts, the JWT key file and the TLS CA bundle. An empty dir
// leaves them as they are.
func (c *Config) ResolvePaths(dir string) {
	if dir == "" {
		return
	}
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	for i := range c.Run.Scenarios {
		for j := range c.Run.Scenarios[i].Parts {
			if f := c.Run.Scenarios[i].Parts[j].File; f != nil {
				resolve(&f.Path)
			}
		}
	}
	if c.Auth.JWT != nil {
		resolve(&c.Auth.JWT.KeyFile)
	}
	if c.Server.TLS != nil {
		resolve(&c.Server.TLS.CACertificate)
	}
}

// parseBytes parses YAML, falling back to JSON. An empty document yields an
// empty map.
func parseBytes(data []byte) (map[string]any, error) {
	var result map[string]any

	if err := yaml.Unmarshal(data, &result); err == nil {
		if result == nil {
			result = map[string]any{}
		}
		return result, nil
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("not valid YAML or JSON: %w", err)
	}
	return result, nil
}

// decodeConfig decodes a map into a Config struct using mapstructure.
// Unknown keys are errors.
func decodeConfig(input map[string]any, output *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

// envVarPattern matches $$, ${VAR}, ${VAR:-default} and $VAR.
var envVarPattern = regexp.MustCompile(`\$\$|\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expander substitutes environment variables through a decoded document and
// records the variables that were referenced without a default but unset.
type expander struct {
	unset []string
}

func (e *expander) expandMap(input map[string]any) map[string]any {
	result := make(map[string]any, len(input))
	for k, v := range input {
		result[k] = e.expandValue(v)
	}
	return result
}

func (e *expander) expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return e.expandString(val)
	case map[string]any:
		return e.expandMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = e.expandValue(item)
		}
		return result
	default:
		return v
	}
}

func (e *expander) expandString(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if match == "$$" {
			return "$"
		}
		name, def, hasDefault := match[1:], "", false
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
			if idx := strings.Index(name, ":-"); idx != -1 {
				name, def, hasDefault = name[:idx], name[idx+2:], true
			}
		}
		if val := os.Getenv(name); val != "" {
			return val
		}
		if !hasDefault && !slices.Contains(e.unset, name) {
			e.unset = append(e.unset, name)
		}
		return def
	})
}

// expandEnvString expands a single string.
func expandEnvString(s string) string {
	return (&expander{}).expandString(s)
}

// LoadConfigFile creates a loader for path and loads it once. The returned
// loader can be used to watch the file.
func LoadConfigFile(ctx context.Context, path string) (*Config, *Loader, error) {
	p, err := provider.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	loader := NewLoader(p)
	cfg, err := loader.Load(ctx)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return cfg, loader, nil
}
