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

// Package probe implements one availability check per supported protocol.
// A Prober reports a single observation: a nil error means the service
// answered, any error means it did not. The context carries the time
// budget for the whole attempt; implementations must return once it
// expires and must never retry on their own.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/tuptime/pkg/models"
)

var (
	errProbePanicked = errors.New("probe panicked")
)

// Prober performs one availability check per call.
type Prober interface {
	Check(ctx context.Context) error
}

// New resolves a service config to its protocol implementation. The
// resolution happens once, when the monitor loop is built, so a tick
// never re-inspects the protocol tag.
func New(svc models.ServiceConfig) (Prober, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}

	switch svc.ServiceType {
	case models.ServiceICMP:
		return newICMPProber(svc), nil
	case models.ServiceHTTP:
		return newHTTPProber(svc), nil
	case models.ServiceSMB:
		return newSMBProber(svc), nil
	case models.ServiceFTP:
		return newFTPProber(svc), nil
	case models.ServiceSSH:
		return newSSHProber(svc), nil
	default:
		return nil, fmt.Errorf("no prober for service type %q", svc.ServiceType)
	}
}

// Run invokes a single check, converting a panicking implementation
// into an ordinary failed observation so one bad tick cannot take the
// daemon down.
func Run(ctx context.Context, p Prober) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errProbePanicked, r)
		}
	}()

	return p.Check(ctx)
}
