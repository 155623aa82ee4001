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

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/tuptime/pkg/metrics"
	"github.com/carverauto/tuptime/pkg/monitor"
)

const drainTimeout = 10 * time.Second

// Run is the foreground body of the detached child. It claims the PID
// file and watches every registered service until SIGINT or SIGTERM
// asks it to shut down. SIGHUP is ignored so a dying controlling
// terminal cannot take the daemon with it.
func (d *Daemon) Run(ctx context.Context) error {
	services, err := d.registry.List()
	if err != nil {
		return err
	}

	if len(services) == 0 {
		return ErrNoServices
	}

	pid := os.Getpid()

	if err := d.pidfile.Acquire(pid); err != nil {
		return err
	}

	defer func() {
		_ = d.pidfile.Remove()
	}()

	runID := uuid.New().String()
	d.logger.Info().
		Str("run_id", runID).
		Int("pid", pid).
		Int("services", len(services)).
		Msg("Daemon running")

	journal := monitor.NewJournal(d.paths.LogFile)

	defer func() {
		_ = journal.Close()
	}()

	journal.Event("tuptime daemon started (pid %d)", pid)

	signal.Ignore(syscall.SIGHUP)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			journal.Event("received %s, shutting down", sig)
			cancel()
		case <-runCtx.Done():
		}
	}()

	store := metrics.NewStore(d.paths.MetricsDir, d.logger)

	runner, err := monitor.NewRunner(services, store, journal, d.logger)
	if err != nil {
		return err
	}

	if err := runner.Start(runCtx); err != nil {
		return err
	}

	<-runCtx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer stopCancel()

	stopErr := runner.Stop(stopCtx)

	journal.Event("tuptime daemon stopped (pid %d)", pid)
	d.logger.Info().Str("run_id", runID).Msg("Daemon stopped")

	return stopErr
}
