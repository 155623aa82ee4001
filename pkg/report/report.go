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

// Package report summarizes persisted availability per service. It only
// reads, so it works the same whether the daemon is running or not.
package report

import (
	"time"

	"github.com/carverauto/tuptime/pkg/config"
	"github.com/carverauto/tuptime/pkg/metrics"
	"github.com/carverauto/tuptime/pkg/models"
)

// Row is one service's availability summary.
type Row struct {
	Name         string
	ServiceType  models.ServiceType
	Target       string
	IsUp         bool
	UpPercent    float64
	DownPercent  float64
	LastDowntime *time.Time
}

// Reporter joins the service registry with the metrics store.
type Reporter struct {
	registry *config.Registry
	store    *metrics.Store
}

func NewReporter(registry *config.Registry, store *metrics.Store) *Reporter {
	return &Reporter{registry: registry, store: store}
}

// Rows returns one summary per registered service, in registry order.
// Services never observed report zero percentages, not an error.
func (r *Reporter) Rows() ([]Row, error) {
	services, err := r.registry.List()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(services))

	for _, svc := range services {
		record := r.store.Load(svc.Name)
		up, down := availability(record)

		rows = append(rows, Row{
			Name:         svc.Name,
			ServiceType:  svc.ServiceType,
			Target:       svc.Target,
			IsUp:         record.IsUp,
			UpPercent:    up,
			DownPercent:  down,
			LastDowntime: record.LastDowntime,
		})
	}

	return rows, nil
}

func availability(m models.Metrics) (upPercent, downPercent float64) {
	total := m.ObservedSeconds()
	if total == 0 {
		return 0, 0
	}

	upPercent = float64(m.TotalUptime) / float64(total) * 100
	downPercent = float64(m.TotalDowntime) / float64(total) * 100

	return upPercent, downPercent
}
