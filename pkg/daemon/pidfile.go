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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/carverauto/tuptime/pkg/logger"
)

const maxAcquireAttempts = 2

// PIDFile is the single-instance guard: whichever process holds a live
// pid in the file is the daemon for this base directory.
type PIDFile struct {
	path   string
	logger logger.Logger
}

func NewPIDFile(path string, log logger.Logger) *PIDFile {
	return &PIDFile{path: path, logger: log}
}

// Acquire claims the file for pid. The content is staged in a temp file
// and published with an exclusive link, so racing claimants resolve to
// exactly one owner and nobody ever observes a half-written pid. An
// existing file belonging to a live process wins; one belonging to a
// dead process is healed and the claim retried.
func (f *PIDFile) Acquire(pid int) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tuptime-*.pid")
	if err != nil {
		return fmt.Errorf("failed to stage pid file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, werr := fmt.Fprintf(tmp, "%d\n", pid)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}

	if werr != nil {
		return fmt.Errorf("failed to stage pid file: %w", werr)
	}

	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		err := os.Link(tmp.Name(), f.path)
		if err == nil {
			return nil
		}

		if !os.IsExist(err) {
			return fmt.Errorf("failed to create pid file: %w", err)
		}

		existing, rerr := f.Read()
		if rerr == nil && f.Alive(existing) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, existing)
		}

		f.logger.Warn().Str("path", f.path).Msg("Removing stale PID file")

		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale pid file: %w", err)
		}
	}

	return ErrAlreadyRunning
}

// Read returns the recorded pid. A missing file means no daemon:
// ErrNotRunning. Unparseable content is reported as its own error so
// callers can heal it.
func (f *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}

		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("corrupt pid file %s: %w", f.path, err)
	}

	return pid, nil
}

// Alive reports whether pid names a live process. An inconclusive probe
// counts as alive: wrongly declaring a live daemon dead would let a
// second instance destroy its guard.
func (f *PIDFile) Alive(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		f.logger.Warn().Err(err).Int("pid", pid).Msg("Could not determine process liveness")

		return true
	}

	return exists
}

// Remove drops the file; a file already gone is fine.
func (f *PIDFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}

	return nil
}

// ModTime is the claim time of the current file, which doubles as the
// daemon's start time for status reporting.
func (f *PIDFile) ModTime() (time.Time, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat pid file: %w", err)
	}

	return info.ModTime(), nil
}
