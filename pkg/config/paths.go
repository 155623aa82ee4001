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

// Package config owns the on-disk layout of a tuptime base directory and the
// service registry stored inside it. Paths are resolved exactly once, at
// startup, and passed by value into every component; nothing in the daemon
// consults the environment after that.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates every file tuptime touches under one base directory.
type Paths struct {
	Base       string // base directory, e.g. ~/.config/tuptime
	ConfigFile string // service registry (config.json)
	PIDFile    string // single-instance guard (tuptime.pid)
	LogFile    string // append-only monitor log (tuptime.log)
	DaemonLog  string // structured daemon diagnostics (daemon.log)
	MetricsDir string // one metrics record per service (metrics/<name>.json)
}

// DefaultPaths resolves the platform base directory: %APPDATA%\tuptime,
// ~/Library/Application Support/tuptime, or ~/.config/tuptime.
func DefaultPaths() (Paths, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve user config directory: %w", err)
	}

	return PathsAt(filepath.Join(dir, "tuptime")), nil
}

// PathsAt builds the layout under an explicit base directory. Tests and the
// -base flag use this to avoid touching the real user directory.
func PathsAt(base string) Paths {
	return Paths{
		Base:       base,
		ConfigFile: filepath.Join(base, "config.json"),
		PIDFile:    filepath.Join(base, "tuptime.pid"),
		LogFile:    filepath.Join(base, "tuptime.log"),
		DaemonLog:  filepath.Join(base, "daemon.log"),
		MetricsDir: filepath.Join(base, "metrics"),
	}
}

// Ensure creates the base directory tree.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Base, p.MetricsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	return nil
}
