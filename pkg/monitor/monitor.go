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

// Package monitor runs the per-service watch loops. Each loop owns one
// service: it probes, folds the outcome into the metrics store, writes
// one journal line per tick, then sleeps for the service interval. The
// next tick starts when the sleep ends, so the effective period is the
// interval plus whatever the probe consumed.
package monitor

import (
	"context"
	"time"

	"github.com/carverauto/tuptime/pkg/logger"
	"github.com/carverauto/tuptime/pkg/metrics"
	"github.com/carverauto/tuptime/pkg/models"
	"github.com/carverauto/tuptime/pkg/probe"
)

// Monitor drives the watch loop for a single service.
type Monitor struct {
	svc     models.ServiceConfig
	prober  probe.Prober
	store   *metrics.Store
	journal *Journal
	logger  logger.Logger
}

// New resolves the service's prober and binds the loop's collaborators.
func New(svc models.ServiceConfig, store *metrics.Store, journal *Journal, log logger.Logger) (*Monitor, error) {
	p, err := probe.New(svc)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		svc:     svc,
		prober:  p,
		store:   store,
		journal: journal,
		logger:  log,
	}, nil
}

// Run executes the probe cycle until ctx is cancelled. Cancellation is
// honored at the checkpoint between probe and sleep and during the sleep
// itself; an observation interrupted by shutdown is discarded rather
// than recorded.
func (m *Monitor) Run(ctx context.Context) {
	interval := time.Duration(m.svc.Interval)
	last := m.store.Load(m.svc.Name)

	m.logger.Info().
		Str("service", m.svc.Name).
		Str("type", string(m.svc.ServiceType)).
		Dur("interval", interval).
		Bool("was_up", last.IsUp).
		Msg("Watching service")

	for {
		err := m.probeOnce(ctx, interval)

		if ctx.Err() != nil {
			m.logger.Debug().Str("service", m.svc.Name).Msg("Watch loop cancelled")
			return
		}

		up := err == nil
		if err != nil {
			m.logger.Debug().Err(err).Str("service", m.svc.Name).Msg("Probe failed")
		}

		record, updateErr := m.store.Update(m.svc.Name, up, interval)
		if updateErr != nil {
			m.logger.Error().Err(updateErr).Str("service", m.svc.Name).Msg("Failed to persist metrics")
		}

		m.journal.Observation(m.svc, up)

		if record.IsUp != last.IsUp {
			m.logger.Info().Str("service", m.svc.Name).Bool("up", record.IsUp).Msg("Service state changed")
		}

		last = record

		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Debug().Str("service", m.svc.Name).Msg("Watch loop cancelled")

			return
		case <-timer.C:
		}
	}
}

// probeOnce runs one check under the service interval as time budget.
// The error is the probe's failure cause; mapping it to up or down
// happens in Run and nowhere else.
func (m *Monitor) probeOnce(ctx context.Context, budget time.Duration) error {
	probeCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	return probe.Run(probeCtx, m.prober)
}
