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

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/tuptime/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st := NewStore(t.TempDir(), logger.NewTestLogger())
	st.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	return st
}

func TestLoadMissingReturnsZero(t *testing.T) {
	st := newTestStore(t)

	m := st.Load("never-seen")
	assert.True(t, m.IsZero())
	assert.False(t, m.IsUp)
	assert.Nil(t, m.LastDowntime)
}

func TestLoadCorruptReturnsZero(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, os.MkdirAll(st.dir, 0o755))
	require.NoError(t, os.WriteFile(st.filePath("web"), []byte("{broken"), 0o644))

	m := st.Load("web")
	assert.True(t, m.IsZero())
}

func TestUpdateAccumulatesUptime(t *testing.T) {
	st := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := st.Update("web", true, 60*time.Second)
		require.NoError(t, err)
	}

	m := st.Load("web")
	assert.True(t, m.IsUp)
	assert.Equal(t, int64(180), m.TotalUptime)
	assert.Equal(t, int64(0), m.TotalDowntime)
	assert.Nil(t, m.LastDowntime)
}

func TestLastDowntimeMovesOnlyOnTransition(t *testing.T) {
	st := newTestStore(t)

	firstDown := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return firstDown }

	_, err := st.Update("web", true, 30*time.Second)
	require.NoError(t, err)

	m, err := st.Update("web", false, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, m.LastDowntime)
	assert.Equal(t, firstDown, *m.LastDowntime)

	// Staying down must not advance the timestamp.
	st.now = func() time.Time { return firstDown.Add(30 * time.Second) }

	m, err = st.Update("web", false, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, m.LastDowntime)
	assert.Equal(t, firstDown, *m.LastDowntime)

	// Recover, then fail again: a fresh outage gets a fresh timestamp.
	_, err = st.Update("web", true, 30*time.Second)
	require.NoError(t, err)

	secondDown := firstDown.Add(5 * time.Minute)
	st.now = func() time.Time { return secondDown }

	m, err = st.Update("web", false, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, m.LastDowntime)
	assert.Equal(t, secondDown, *m.LastDowntime)
}

func TestFreshRecordDownSetsLastDowntime(t *testing.T) {
	st := newTestStore(t)

	m, err := st.Update("web", false, 60*time.Second)
	require.NoError(t, err)

	assert.False(t, m.IsUp)
	assert.Equal(t, int64(60), m.TotalDowntime)
	require.NotNil(t, m.LastDowntime)
}

func TestUpdateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	st := NewStore(dir, logger.NewTestLogger())
	_, err := st.Update("web", true, 45*time.Second)
	require.NoError(t, err)
	_, err = st.Update("web", false, 45*time.Second)
	require.NoError(t, err)

	// A fresh store over the same directory resumes the counters.
	resumed := NewStore(dir, logger.NewTestLogger())
	m := resumed.Load("web")
	assert.Equal(t, int64(45), m.TotalUptime)
	assert.Equal(t, int64(45), m.TotalDowntime)
	assert.False(t, m.IsUp)
	assert.NotNil(t, m.LastDowntime)
}

func TestUpdateScenario(t *testing.T) {
	st := newTestStore(t)

	outage := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	st.now = func() time.Time { return outage }

	interval := 30 * time.Second
	for _, up := range []bool{true, true, false, false, true} {
		_, err := st.Update("web", up, interval)
		require.NoError(t, err)
	}

	m := st.Load("web")
	assert.True(t, m.IsUp)
	assert.Equal(t, int64(90), m.TotalUptime)
	assert.Equal(t, int64(60), m.TotalDowntime)
	assert.Equal(t, int64(150), m.ObservedSeconds())
	require.NotNil(t, m.LastDowntime)
	assert.Equal(t, outage, *m.LastDowntime)
}

func TestFilePathSanitizesName(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Update("corp/intranet", true, 60*time.Second)
	require.NoError(t, err)

	// The separator must not escape the metrics directory.
	assert.Equal(t, filepath.Join(st.dir, "corp_intranet.json"), st.filePath("corp/intranet"))
	_, statErr := os.Stat(filepath.Join(st.dir, "corp_intranet.json"))
	assert.NoError(t, statErr)
}

func TestStoredFileShape(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Update("web", false, 60*time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(st.filePath("web"))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"isup":false,"total_uptime":0,"total_downtime":60,"last_downtime":"2025-06-01T12:00:00Z"}`,
		string(data))
}
