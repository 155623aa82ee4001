/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/carverauto/tuptime/pkg/logger"
	"github.com/carverauto/tuptime/pkg/metrics"
	"github.com/carverauto/tuptime/pkg/models"
)

// Runner fans out one Monitor per service and owns their joint
// lifecycle. Loops share nothing but the store and journal, so one
// slow or failing service never delays another.
type Runner struct {
	monitors []*Monitor
	logger   logger.Logger
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewRunner builds a monitor for every service up front, so a bad
// config is rejected before anything starts running.
func NewRunner(services []models.ServiceConfig, store *metrics.Store, journal *Journal, log logger.Logger) (*Runner, error) {
	r := &Runner{logger: log}

	for _, svc := range services {
		m, err := New(svc, store, journal, log)
		if err != nil {
			return nil, fmt.Errorf("failed to build monitor for %q: %w", svc.Name, err)
		}

		r.monitors = append(r.monitors, m)
	}

	return r, nil
}

// Start launches every watch loop. The loops run until ctx is cancelled
// or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.logger.Info().Int("services", len(r.monitors)).Msg("Starting watch loops")

	for _, m := range r.monitors {
		r.wg.Add(1)

		go func(m *Monitor) {
			defer r.wg.Done()
			m.Run(runCtx)
		}(m)
	}

	return nil
}

// Stop cancels the loops and waits for them to drain, bounded by ctx.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	drained := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		r.logger.Info().Msg("Watch loops stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("watch loops did not drain: %w", ctx.Err())
	}
}
