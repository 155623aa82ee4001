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
	"strings"

	"github.com/hirochachacha/go-smb2"

	"github.com/carverauto/tuptime/pkg/models"
)

// SMBProber establishes an SMB2 session on the target, as guest when the
// service has no credentials. A location beyond "/" names a share and an
// optional directory inside it, both of which must answer a listing.
type SMBProber struct {
	addr     string
	username string
	password string
	share    string
	dir      string
}

func newSMBProber(svc models.ServiceConfig) *SMBProber {
	user, pass := svc.Username, svc.Password
	if user == "" {
		user, pass = "guest", ""
	}

	share, dir := splitShareLocation(svc.Location)

	return &SMBProber{
		addr:     net.JoinHostPort(svc.Target, strconv.Itoa(svc.EffectivePort())),
		username: user,
		password: pass,
		share:    share,
		dir:      dir,
	}
}

func (s *SMBProber) Check(ctx context.Context) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", s.addr, err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     s.username,
			Password: s.password,
		},
	}

	session, err := dialer.DialContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("smb session with %s failed: %w", s.addr, err)
	}

	defer func() {
		_ = session.Logoff()
	}()

	if s.share == "" {
		return nil
	}

	share, err := session.Mount(s.share)
	if err != nil {
		return fmt.Errorf("failed to mount share %q on %s: %w", s.share, s.addr, err)
	}

	defer func() {
		_ = share.Umount()
	}()

	if _, err := share.WithContext(ctx).ReadDir(s.dir); err != nil {
		return fmt.Errorf("failed to list %q on share %q: %w", s.dir, s.share, err)
	}

	return nil
}

// splitShareLocation maps a location path onto SMB terms: the first
// segment is the share, the remainder a directory inside it. "/" means
// session-level checking only.
func splitShareLocation(location string) (share, dir string) {
	trimmed := strings.Trim(strings.ReplaceAll(location, `\`, "/"), "/")
	if trimmed == "" {
		return "", ""
	}

	parts := strings.SplitN(trimmed, "/", 2)

	dir = "."
	if len(parts) == 2 && parts[1] != "" {
		dir = strings.ReplaceAll(parts[1], "/", `\`)
	}

	return parts[0], dir
}
