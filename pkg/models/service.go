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

// Package models defines the shared data types for tuptime: service
// definitions, the persisted metrics record, and JSON bindings.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ServiceType identifies the probe protocol for a monitored service.
// The set is closed: probe dispatch resolves a ServiceType to a prober
// implementation exactly once, when the service registry is loaded.
type ServiceType string

const (
	ServiceICMP ServiceType = "ICMP"
	ServiceHTTP ServiceType = "HTTP"
	ServiceSMB  ServiceType = "SMB"
	ServiceFTP  ServiceType = "FTP"
	ServiceSSH  ServiceType = "SSH"
)

const (
	defaultInterval = 60 * time.Second
	defaultLocation = "/"

	maxPort = 65535
)

var (
	errUnknownServiceType = fmt.Errorf("unknown service type")
	errTargetRequired     = fmt.Errorf("target is required")
	errInvalidPort        = fmt.Errorf("port out of range")
	errInvalidInterval    = fmt.Errorf("interval must be greater than zero")
)

// ParseServiceType normalizes and validates a protocol name.
func ParseServiceType(s string) (ServiceType, error) {
	t := ServiceType(strings.ToUpper(s))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", errUnknownServiceType, s)
	}

	return t, nil
}

// Valid reports whether t is one of the five supported protocols.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceICMP, ServiceHTTP, ServiceSMB, ServiceFTP, ServiceSSH:
		return true
	default:
		return false
	}
}

// DefaultPort returns the well-known port for the protocol, or 0 when the
// protocol has no port (ICMP) or derives it from the scheme (HTTP).
func (t ServiceType) DefaultPort() int {
	switch t {
	case ServiceSMB:
		return 445
	case ServiceFTP:
		return 21
	case ServiceSSH:
		return 22
	case ServiceICMP, ServiceHTTP:
		return 0
	default:
		return 0
	}
}

// UnmarshalJSON rejects protocol names outside the closed set so a bad
// registry entry fails at load time, not at probe time.
func (t *ServiceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseServiceType(s)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ServiceConfig describes one monitored service. Monitor loops receive it by
// value: a loop owns an immutable snapshot taken at daemon start, so registry
// edits never affect a running loop.
type ServiceConfig struct {
	Name        string      `json:"-"` // registry map key
	ServiceType ServiceType `json:"service_type"`
	Target      string      `json:"target"`
	Port        int         `json:"port,omitempty"`
	Location    string      `json:"location,omitempty"`
	Username    string      `json:"username,omitempty"`
	Password    string      `json:"password,omitempty"`
	Interval    Duration    `json:"interval"`
}

// Validate checks the fields the probes rely on and applies the documented
// defaults (location "/", interval 60s).
func (s *ServiceConfig) Validate() error {
	if !s.ServiceType.Valid() {
		return fmt.Errorf("%w: %q", errUnknownServiceType, string(s.ServiceType))
	}

	if s.Target == "" {
		return fmt.Errorf("service %q: %w", s.Name, errTargetRequired)
	}

	if s.Port < 0 || s.Port > maxPort {
		return fmt.Errorf("service %q: %w: %d", s.Name, errInvalidPort, s.Port)
	}

	if s.Location == "" {
		s.Location = defaultLocation
	}

	if time.Duration(s.Interval) == 0 {
		s.Interval = Duration(defaultInterval)
	}

	if time.Duration(s.Interval) < 0 {
		return fmt.Errorf("service %q: %w", s.Name, errInvalidInterval)
	}

	return nil
}

// EffectivePort resolves the configured port against the protocol default.
func (s *ServiceConfig) EffectivePort() int {
	if s.Port != 0 {
		return s.Port
	}

	return s.ServiceType.DefaultPort()
}
