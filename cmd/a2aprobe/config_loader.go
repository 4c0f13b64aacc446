package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/httpclient"
)

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = "a2aprobe.yaml"

// configPath returns the explicit --config path, else the default file if
// it exists, else "".
func (cli *CLI) configPath() string {
	if cli.Config != "" {
		return cli.Config
	}
	if fileExists(defaultConfigFile) {
		return defaultConfigFile
	}
	return ""
}

// loadConfig loads the config file, or the defaults when there is none, and
// applies the command-line overrides. The loader is nil without a file.
func (cli *CLI) loadConfig(ctx context.Context) (*config.Config, *config.Loader, error) {
	path := cli.configPath()
	if path == "" {
		cfg := config.Default()
		if err := cli.finish(cfg); err != nil {
			return nil, nil, err
		}
		return cfg, nil, nil
	}

	_ = config.LoadEnvFilesForConfig(path)
	cfg, loader, err := config.LoadConfigFile(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	slog.Info("Loaded configuration", "path", path)

	if err := cli.finish(cfg); err != nil {
		loader.Close()
		return nil, nil, err
	}
	return cfg, loader, nil
}

// finish applies overrides, defaults and validation.
func (cli *CLI) finish(cfg *config.Config) error {
	cli.applyOverrides(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyOverrides copies every flag that was set onto cfg.
func (cli *CLI) applyOverrides(cfg *config.Config) {
	if cli.URL != "" {
		cfg.Server.URL = cli.URL
	}
	if cli.CardPath != "" {
		cfg.Server.CardPath = cli.CardPath
	}
	if len(cli.Header) > 0 {
		if cfg.Server.Headers == nil {
			cfg.Server.Headers = make(map[string]string, len(cli.Header))
		}
		maps.Copy(cfg.Server.Headers, cli.Header)
	}
	if cli.Timeout > 0 {
		cfg.Server.Timeout = cli.Timeout
	}
	if cli.Insecure {
		if cfg.Server.TLS == nil {
			cfg.Server.TLS = &httpclient.TLSConfig{}
		}
		cfg.Server.TLS.InsecureSkipVerify = true
	}

	if cli.Stream != nil {
		cfg.Client.Streaming = config.BoolPtr(*cli.Stream)
	}
	if cli.Polling {
		cfg.Client.Polling = true
	}
	if len(cli.Transport) > 0 {
		cfg.Client.Transports = nil
		for _, t := range cli.Transport {
			cfg.Client.Transports = append(cfg.Client.Transports, config.NormalizeTransport(t))
		}
	}

	if len(cli.Credential) > 0 {
		if cfg.Auth.Credentials == nil {
			cfg.Auth.Credentials = make(map[string]string, len(cli.Credential))
		}
		maps.Copy(cfg.Auth.Credentials, cli.Credential)
	}

	if cli.MaxEvents != 0 {
		cfg.Run.MaxEvents = cli.MaxEvents
	}

	if cli.Trace {
		cfg.Observability.Tracing.Enabled = true
	}
	if cli.MetricsFile != "" {
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Metrics.Textfile = cli.MetricsFile
	}
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
