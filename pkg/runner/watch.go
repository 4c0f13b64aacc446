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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/a2aprobe/pkg/config"
	"github.com/kadirpekel/a2aprobe/pkg/config/provider"
)

// RunFunc performs one probe run with cfg.
type RunFunc func(ctx context.Context, cfg *config.Config) error

// Watch runs fn with the configuration from p, then again every time the
// configuration changes, until ctx is cancelled. Changes arriving while a
// run is in progress collapse into a single rerun with the latest config.
// Run errors are logged and do not stop watching.
func Watch(ctx context.Context, p provider.Provider, fn RunFunc) error {
	pending := make(chan *config.Config, 1)
	push := func(cfg *config.Config) {
		for {
			select {
			case pending <- cfg:
				return
			default:
			}
			select {
			case <-pending:
			default:
			}
		}
	}

	loader := config.NewLoader(p, config.WithOnChange(push))
	defer loader.Close()

	cfg, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	push(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loader.Watch(gctx)
	})
	g.Go(func() error {
		for runs := 1; ; runs++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case cfg := <-pending:
				slog.Info("Starting probe run", "run", runs)
				if err := fn(gctx, cfg); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					slog.Error("Probe run failed", "run", runs, "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch stopped: %w", err)
	}
	return nil
}
