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

	"golang.org/x/crypto/ssh"

	"github.com/carverauto/tuptime/pkg/models"
)

// SSHProber verifies TCP reachability of the target port. When the
// service carries a username it additionally requires a full password
// handshake, accepting whatever host key the server presents.
type SSHProber struct {
	addr     string
	username string
	password string
}

func newSSHProber(svc models.ServiceConfig) *SSHProber {
	return &SSHProber{
		addr:     net.JoinHostPort(svc.Target, strconv.Itoa(svc.EffectivePort())),
		username: svc.Username,
		password: svc.Password,
	}
}

func (s *SSHProber) Check(ctx context.Context) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", s.addr, err)
	}

	if s.username == "" {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection to %s: %w", s.addr, err)
		}

		return nil
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	cfg := &ssh.ClientConfig{
		User: s.username,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.password),
		},
		//nolint:gosec // availability probe, host identity is not verified
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, s.addr, cfg)
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("ssh handshake with %s failed: %w", s.addr, err)
	}

	_ = ssh.NewClient(clientConn, chans, reqs).Close()

	return nil
}
