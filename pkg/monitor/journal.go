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
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/carverauto/tuptime/pkg/models"
)

const (
	journalMaxSizeMB  = 10
	journalMaxBackups = 3
	journalMaxAgeDays = 28
)

// Journal is the operator-facing activity log: one plain-text line per
// observation plus daemon lifecycle lines. It is shared by every monitor
// loop, so writes are serialized here.
type Journal struct {
	mu  sync.Mutex
	out io.WriteCloser
	now func() time.Time
}

// NewJournal opens the activity log at path with size-based rotation.
func NewJournal(path string) *Journal {
	return &Journal{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    journalMaxSizeMB,
			MaxBackups: journalMaxBackups,
			MaxAge:     journalMaxAgeDays,
		},
		now: time.Now,
	}
}

// Observation records the outcome of one probe tick.
func (j *Journal) Observation(svc models.ServiceConfig, up bool) {
	state := "DOWN"
	if up {
		state = "UP"
	}

	j.line(fmt.Sprintf("%s '%s' (%s): %s", svc.ServiceType, svc.Name, describeTarget(svc), state))
}

// Event records a daemon lifecycle line.
func (j *Journal) Event(format string, args ...interface{}) {
	j.line(fmt.Sprintf(format, args...))
}

func (j *Journal) Close() error {
	return j.out.Close()
}

func (j *Journal) line(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	fmt.Fprintf(j.out, "%s - %s\n", j.now().UTC().Format(time.RFC3339), text)
}

func describeTarget(svc models.ServiceConfig) string {
	if port := svc.EffectivePort(); port > 0 {
		return net.JoinHostPort(svc.Target, strconv.Itoa(port))
	}

	return svc.Target
}
