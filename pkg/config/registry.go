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
	"fmt"
	"os"
	"sort"

	"github.com/carverauto/tuptime/pkg/logger"
	"github.com/carverauto/tuptime/pkg/models"
)

// The registry file may hold credentials, so it is not group/world readable.
const registryFileMode = 0o600

// registryFile is the on-disk shape: {"services": {name: ServiceConfig}}.
type registryFile struct {
	Services map[string]models.ServiceConfig `json:"services"`
}

// Registry manages the service definitions in config.json. A missing file is
// bootstrapped empty on first use; an unreadable file degrades to an empty
// registry with a warning rather than failing the caller.
type Registry struct {
	paths  Paths
	logger logger.Logger
}

func NewRegistry(paths Paths, log logger.Logger) *Registry {
	return &Registry{paths: paths, logger: log}
}

// Ensure creates the base directory and an empty registry file when absent,
// so a first run starts from a valid empty configuration.
func (r *Registry) Ensure() error {
	if err := r.paths.Ensure(); err != nil {
		return err
	}

	if _, err := os.Stat(r.paths.ConfigFile); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat registry %q: %w", r.paths.ConfigFile, err)
	}

	r.logger.Info().Str("path", r.paths.ConfigFile).Msg("Creating empty service registry")

	return r.save(map[string]models.ServiceConfig{})
}

// List returns every registered service, validated, defaults applied, sorted
// by name so startup and report order are deterministic.
func (r *Registry) List() ([]models.ServiceConfig, error) {
	services := r.loadMap()

	out := make([]models.ServiceConfig, 0, len(services))

	for name, svc := range services {
		svc.Name = name
		if err := svc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid registry entry: %w", err)
		}

		out = append(out, svc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

// Add registers a new service. The name is a unique, immutable identity:
// adding over an existing name is a conflict, not an update.
func (r *Registry) Add(svc models.ServiceConfig) error {
	if svc.Name == "" {
		return ErrNameRequired
	}

	if err := svc.Validate(); err != nil {
		return err
	}

	if err := r.Ensure(); err != nil {
		return err
	}

	services := r.loadMap()

	if _, exists := services[svc.Name]; exists {
		return fmt.Errorf("%w: %q", ErrServiceExists, svc.Name)
	}

	services[svc.Name] = svc

	return r.save(services)
}

// Remove deletes a service definition. Its metrics record is left in place;
// history belongs to the metrics store, not the registry.
func (r *Registry) Remove(name string) error {
	services := r.loadMap()

	if _, exists := services[name]; !exists {
		return fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}

	delete(services, name)

	return r.save(services)
}

// loadMap reads the registry file. Missing or corrupt files degrade to an
// empty map: persistence failures are never fatal to the caller.
func (r *Registry) loadMap() map[string]models.ServiceConfig {
	data, err := os.ReadFile(r.paths.ConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", r.paths.ConfigFile).Msg("Failed to read registry, treating as empty")
		}

		return map[string]models.ServiceConfig{}
	}

	var file registryFile

	if err := json.Unmarshal(data, &file); err != nil {
		r.logger.Warn().Err(err).Str("path", r.paths.ConfigFile).Msg("Registry is not valid JSON, treating as empty")
		return map[string]models.ServiceConfig{}
	}

	if file.Services == nil {
		return map[string]models.ServiceConfig{}
	}

	return file.Services
}

func (r *Registry) save(services map[string]models.ServiceConfig) error {
	data, err := json.MarshalIndent(registryFile{Services: services}, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.WriteFile(r.paths.ConfigFile, data, registryFileMode); err != nil {
		return fmt.Errorf("failed to write registry %q: %w", r.paths.ConfigFile, err)
	}

	return nil
}
