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

// Package models pkg/models/metrics.go
package models

import "time"

// Metrics is the persisted availability record for one service. It lives in
// its own per-service file, keyed by service name, so that registry edits
// never erase accumulated history.
//
// TotalUptime and TotalDowntime are whole seconds and only ever grow.
// LastDowntime is set on an UP-to-DOWN transition edge (or on the first DOWN
// tick of a fresh record) and left alone on repeated DOWN ticks.
type Metrics struct {
	IsUp          bool       `json:"isup"`
	TotalUptime   int64      `json:"total_uptime"`
	TotalDowntime int64      `json:"total_downtime"`
	LastDowntime  *time.Time `json:"last_downtime"`
}

// IsZero reports whether the record is the fresh zero value, i.e. the service
// has never been observed. A fresh record going DOWN counts as a transition
// edge for LastDowntime purposes.
func (m Metrics) IsZero() bool {
	return !m.IsUp && m.TotalUptime == 0 && m.TotalDowntime == 0 && m.LastDowntime == nil
}

// ObservedSeconds is the total monitored time reflected in the counters.
func (m Metrics) ObservedSeconds() int64 {
	return m.TotalUptime + m.TotalDowntime
}
