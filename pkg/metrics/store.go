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

// Package metrics pkg/metrics/store.go
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carverauto/tuptime/pkg/logger"
	"github.com/carverauto/tuptime/pkg/models"
)

const (
	metricsDirMode  = 0o755
	metricsFileMode = 0o644
)

// separators that must not leak from a service name into the file path.
var fileNameSanitizer = strings.NewReplacer("/", "_", "\\", "_")

// Store persists one uptime record per service as a JSON file under a
// metrics directory. Each monitor loop owns exactly one service name, so
// writes never contend across services and the store needs no locking.
type Store struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
}

// NewStore returns a Store rooted at dir. The directory is created lazily
// on the first write.
func NewStore(dir string, log logger.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log,
		now:    time.Now,
	}
}

// Load returns the persisted record for a service. A missing or unreadable
// file yields a zero-valued record rather than an error: monitoring must
// start (or resume) regardless of what is on disk.
func (s *Store) Load(name string) models.Metrics {
	data, err := os.ReadFile(s.filePath(name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug().Err(err).Str("service", name).Msg("Metrics file unreadable, starting from zero")
		}

		return models.Metrics{}
	}

	var m models.Metrics

	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Debug().Err(err).Str("service", name).Msg("Metrics file corrupt, starting from zero")

		return models.Metrics{}
	}

	return m
}

// Update folds one observation into the service record and persists it.
// The interval is credited in whole seconds to the counter matching the
// observation. last_downtime moves only on an up-to-down transition, or
// when a fresh record's first observation is down; it never moves while a
// service stays down. The updated record is returned even when persisting
// fails, so the caller can keep monitoring and report the write error.
func (s *Store) Update(name string, up bool, interval time.Duration) (models.Metrics, error) {
	record := s.Load(name)
	seconds := int64(interval / time.Second)

	if up {
		record.TotalUptime += seconds
	} else {
		record.TotalDowntime += seconds

		if record.IsUp || record.IsZero() {
			t := s.now().UTC()
			record.LastDowntime = &t
		}
	}

	record.IsUp = up

	if err := s.save(name, record); err != nil {
		return record, err
	}

	return record, nil
}

func (s *Store) save(name string, record models.Metrics) error {
	if err := os.MkdirAll(s.dir, metricsDirMode); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics for %q: %w", name, err)
	}

	if err := os.WriteFile(s.filePath(name), data, metricsFileMode); err != nil {
		return fmt.Errorf("failed to write metrics for %q: %w", name, err)
	}

	return nil
}

func (s *Store) filePath(name string) string {
	return filepath.Join(s.dir, fileNameSanitizer.Replace(name)+".json")
}
