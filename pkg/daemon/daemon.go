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

// Package daemon supervises the monitoring process: at most one runs
// per base directory, guarded by a PID file. Start launches a detached
// child (marked via environment) that owns the watch loops; Stop and
// Status talk to that child from the outside.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/carverauto/tuptime/pkg/config"
	"github.com/carverauto/tuptime/pkg/logger"
)

// EnvMarker is set in the detached child's environment so its main can
// tell the foreground run apart from the operator-facing start command.
const EnvMarker = "TUPTIME_DAEMON"

const (
	stopGraceTimeout = 10 * time.Second
	stopPollInterval = 100 * time.Millisecond
)

// Daemon exposes the supervisor's operator-facing lifecycle.
type Daemon struct {
	paths    config.Paths
	registry *config.Registry
	pidfile  *PIDFile
	logger   logger.Logger
}

// Status describes the daemon as seen from the outside.
type Status struct {
	Running     bool
	PID         int
	Since       time.Time
	HealedStale bool
}

func New(paths config.Paths, registry *config.Registry, log logger.Logger) *Daemon {
	return &Daemon{
		paths:    paths,
		registry: registry,
		pidfile:  NewPIDFile(paths.PIDFile, log),
		logger:   log,
	}
}

// Start launches the detached daemon process and returns its pid. It
// refuses when one is already running or when nothing is registered to
// monitor; a stale PID file from a dead run is healed on the way.
func (d *Daemon) Start() (int, error) {
	if pid, err := d.pidfile.Read(); err == nil {
		if d.pidfile.Alive(pid) {
			return 0, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}

		d.logger.Warn().Int("pid", pid).Msg("Removing stale PID file")

		if err := d.pidfile.Remove(); err != nil {
			return 0, err
		}
	}

	services, err := d.registry.List()
	if err != nil {
		return 0, err
	}

	if len(services) == 0 {
		return 0, ErrNoServices
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}

	cmd := exec.Command(exe, "-daemon", "start", "-base", d.paths.Base)
	cmd.Env = append(os.Environ(), EnvMarker+"=1")
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to launch daemon: %w", err)
	}

	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		d.logger.Warn().Err(err).Msg("Could not release daemon process handle")
	}

	d.logger.Info().Int("pid", pid).Int("services", len(services)).Msg("Daemon started")

	return pid, nil
}

// Stop terminates the running daemon and waits a fixed grace period for
// it to exit. A missing or stale guard reports not running, healing the
// stale file as a side effect.
func (d *Daemon) Stop() error {
	pid, err := d.pidfile.Read()
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return ErrNotRunning
		}

		d.logger.Warn().Err(err).Msg("Healing unreadable PID file")
		_ = d.pidfile.Remove()

		return ErrNotRunning
	}

	if !d.pidfile.Alive(pid) {
		d.logger.Warn().Int("pid", pid).Msg("Removing stale PID file")
		_ = d.pidfile.Remove()

		return ErrNotRunning
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Platforms without SIGTERM delivery get the blunt version.
		if err := proc.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon (pid %d): %w", pid, err)
		}
	}

	deadline := time.Now().Add(stopGraceTimeout)
	for time.Now().Before(deadline) {
		if !d.pidfile.Alive(pid) {
			_ = d.pidfile.Remove()
			d.logger.Info().Int("pid", pid).Msg("Daemon stopped")

			return nil
		}

		time.Sleep(stopPollInterval)
	}

	_ = d.pidfile.Remove()

	return fmt.Errorf("%w (pid %d)", errStopTimeout, pid)
}

// CurrentStatus reports whether the daemon runs and, when it does, its
// pid and start time. A stale guard is healed and reported as such.
func (d *Daemon) CurrentStatus() (Status, error) {
	pid, err := d.pidfile.Read()
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return Status{}, nil
		}

		d.logger.Warn().Err(err).Msg("Healing unreadable PID file")

		if err := d.pidfile.Remove(); err != nil {
			return Status{}, err
		}

		return Status{HealedStale: true}, nil
	}

	if !d.pidfile.Alive(pid) {
		if err := d.pidfile.Remove(); err != nil {
			return Status{}, err
		}

		return Status{HealedStale: true}, nil
	}

	since, err := d.pidfile.ModTime()
	if err != nil {
		return Status{}, err
	}

	return Status{Running: true, PID: pid, Since: since}, nil
}
