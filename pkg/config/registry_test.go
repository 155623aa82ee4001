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

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/tuptime/pkg/logger"
	"github.com/carverauto/tuptime/pkg/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(PathsAt(t.TempDir()), logger.NewTestLogger())
}

func TestEnsureCreatesEmptyRegistry(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Ensure())

	data, err := os.ReadFile(reg.paths.ConfigFile)
	require.NoError(t, err)

	var file registryFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Empty(t, file.Services)

	// Second Ensure must not rewrite an existing registry.
	require.NoError(t, reg.Add(models.ServiceConfig{
		Name:        "web",
		ServiceType: models.ServiceHTTP,
		Target:      "example.com",
	}))
	require.NoError(t, reg.Ensure())

	services, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestAddAndListRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Add(models.ServiceConfig{
		Name:        "fileserver",
		ServiceType: models.ServiceSMB,
		Target:      "files.local",
		Location:    "/share/backups",
		Username:    "svc",
		Password:    "secret",
		Interval:    models.Duration(30 * time.Second),
	}))

	services, err := reg.List()
	require.NoError(t, err)
	require.Len(t, services, 1)

	svc := services[0]
	assert.Equal(t, "fileserver", svc.Name)
	assert.Equal(t, models.ServiceSMB, svc.ServiceType)
	assert.Equal(t, "files.local", svc.Target)
	assert.Equal(t, "/share/backups", svc.Location)
	assert.Equal(t, "svc", svc.Username)
	assert.Equal(t, 445, svc.EffectivePort())
	assert.Equal(t, int64(30), svc.Interval.Seconds())
}

func TestAddRejectsDuplicateName(t *testing.T) {
	reg := newTestRegistry(t)

	svc := models.ServiceConfig{Name: "web", ServiceType: models.ServiceHTTP, Target: "example.com"}
	require.NoError(t, reg.Add(svc))

	err := reg.Add(svc)
	require.ErrorIs(t, err, ErrServiceExists)

	services, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestAddRejectsMissingName(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.Add(models.ServiceConfig{ServiceType: models.ServiceHTTP, Target: "example.com"})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestRemove(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Add(models.ServiceConfig{Name: "web", ServiceType: models.ServiceHTTP, Target: "example.com"}))
	require.NoError(t, reg.Remove("web"))

	services, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, services)

	require.ErrorIs(t, reg.Remove("web"), ErrServiceNotFound)
}

func TestListSortsByName(t *testing.T) {
	reg := newTestRegistry(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Add(models.ServiceConfig{Name: name, ServiceType: models.ServiceICMP, Target: "10.0.0.1"}))
	}

	services, err := reg.List()
	require.NoError(t, err)
	require.Len(t, services, 3)
	assert.Equal(t, "alpha", services[0].Name)
	assert.Equal(t, "mid", services[1].Name)
	assert.Equal(t, "zeta", services[2].Name)
}

func TestCorruptRegistryDegradesToEmpty(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.paths.Ensure())
	require.NoError(t, os.WriteFile(reg.paths.ConfigFile, []byte("{not json"), 0o600))

	services, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, services)

	// Adding after corruption rebuilds a valid registry.
	require.NoError(t, reg.Add(models.ServiceConfig{Name: "web", ServiceType: models.ServiceHTTP, Target: "example.com"}))

	services, err = reg.List()
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestListRejectsInvalidEntry(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.paths.Ensure())

	// A known-type entry with no target parses but fails validation.
	raw := `{"services": {"broken": {"service_type": "HTTP", "target": "", "interval": 60}}}`
	require.NoError(t, os.WriteFile(reg.paths.ConfigFile, []byte(raw), 0o600))

	_, err := reg.List()
	require.Error(t, err)
}

func TestRegistryFilePermissions(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Add(models.ServiceConfig{
		Name:        "db",
		ServiceType: models.ServiceSSH,
		Target:      "db.local",
		Username:    "monitor",
		Password:    "hunter2",
	}))

	info, err := os.Stat(reg.paths.ConfigFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPathsAtLayout(t *testing.T) {
	base := filepath.Join("/tmp", "tuptime-test")
	p := PathsAt(base)

	assert.Equal(t, base, p.Base)
	assert.Equal(t, filepath.Join(base, "config.json"), p.ConfigFile)
	assert.Equal(t, filepath.Join(base, "tuptime.pid"), p.PIDFile)
	assert.Equal(t, filepath.Join(base, "tuptime.log"), p.LogFile)
	assert.Equal(t, filepath.Join(base, "metrics"), p.MetricsDir)
}
