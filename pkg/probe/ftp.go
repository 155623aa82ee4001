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

package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/jlaffaye/ftp"

	"github.com/carverauto/tuptime/pkg/models"
)

const anonymousFTPUser = "anonymous"

// FTPProber logs in to the target, anonymously when the service has no
// credentials, optionally changes into the configured directory, and
// requires a successful listing.
type FTPProber struct {
	addr     string
	username string
	password string
	dir      string
}

func newFTPProber(svc models.ServiceConfig) *FTPProber {
	user, pass := svc.Username, svc.Password
	if user == "" {
		user, pass = anonymousFTPUser, anonymousFTPUser
	}

	dir := svc.Location
	if dir == "/" {
		dir = ""
	}

	return &FTPProber{
		addr:     net.JoinHostPort(svc.Target, strconv.Itoa(svc.EffectivePort())),
		username: user,
		password: pass,
		dir:      dir,
	}
}

func (f *FTPProber) Check(ctx context.Context) error {
	// The dial func applies the budget to the control and data
	// connections alike, so every command below is deadline-bound.
	conn, err := ftp.Dial(f.addr, ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
		var d net.Dialer

		c, dialErr := d.DialContext(ctx, network, address)
		if dialErr != nil {
			return nil, dialErr
		}

		if deadline, ok := ctx.Deadline(); ok {
			_ = c.SetDeadline(deadline)
		}

		return c, nil
	}))
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", f.addr, err)
	}

	defer func() {
		_ = conn.Quit()
	}()

	if err := conn.Login(f.username, f.password); err != nil {
		return fmt.Errorf("ftp login to %s failed: %w", f.addr, err)
	}

	if f.dir != "" {
		if err := conn.ChangeDir(f.dir); err != nil {
			return fmt.Errorf("failed to enter %q on %s: %w", f.dir, f.addr, err)
		}
	}

	if _, err := conn.List(""); err != nil {
		return fmt.Errorf("failed to list %q on %s: %w", f.dir, f.addr, err)
	}

	return nil
}
