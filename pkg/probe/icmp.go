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
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/carverauto/tuptime/pkg/models"
)

const (
	protocolICMP         = 1 // iana.ProtocolICMP
	defaultICMPTimeout   = 5 * time.Second
	defaultIdentifierMod = 65536
	maxICMPPacketSize    = 1500
)

var (
	errNoIPv4Address = errors.New("target has no IPv4 address")
	errNoEchoReply   = errors.New("no echo reply")
)

// ICMPProber sends one echo request per check and waits for the matching
// reply. It prefers a raw ICMP socket and falls back to the unprivileged
// datagram flavor when raw sockets are not permitted.
type ICMPProber struct {
	host    string
	id      int
	seq     int
	payload []byte
}

func newICMPProber(svc models.ServiceConfig) *ICMPProber {
	return &ICMPProber{
		host:    svc.Target,
		id:      int(time.Now().UnixNano() % defaultIdentifierMod),
		payload: []byte("tuptime"),
	}
}

func (p *ICMPProber) Check(ctx context.Context) error {
	ip, err := p.resolve(ctx)
	if err != nil {
		return err
	}

	conn, privileged, err := listenEcho()
	if err != nil {
		return err
	}
	defer conn.Close()

	// A cancelled context unblocks the read by expiring its deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultICMPTimeout)
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("failed to arm read deadline: %w", err)
	}

	p.seq = (p.seq + 1) % defaultIdentifierMod

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  p.seq,
			Data: p.payload,
		},
	}

	wire, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("failed to marshal echo request: %w", err)
	}

	var dst net.Addr = &net.IPAddr{IP: ip}
	if !privileged {
		dst = &net.UDPAddr{IP: ip}
	}

	if _, err := conn.WriteTo(wire, dst); err != nil {
		return fmt.Errorf("failed to send echo request: %w", err)
	}

	return p.awaitReply(ctx, conn, privileged)
}

func (p *ICMPProber) resolve(ctx context.Context) (net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, p.host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", p.host, err)
	}

	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", errNoIPv4Address, p.host)
}

func (p *ICMPProber) awaitReply(ctx context.Context, conn *icmp.PacketConn, privileged bool) error {
	buf := make([]byte, maxICMPPacketSize)

	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			return fmt.Errorf("%w from %s: %v", errNoEchoReply, p.host, err)
		}

		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}

		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != p.seq {
			continue
		}

		// The unprivileged socket rewrites the identifier in flight.
		if privileged && echo.ID != p.id {
			continue
		}

		return nil
	}
}

// listenEcho opens an ICMP listener, raw first, datagram as fallback for
// processes without CAP_NET_RAW.
func listenEcho() (*icmp.PacketConn, bool, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err == nil {
		return conn, true, nil
	}

	conn, uerr := icmp.ListenPacket("udp4", "0.0.0.0")
	if uerr != nil {
		return nil, false, fmt.Errorf("failed to open ICMP socket: %w", err)
	}

	return conn, false, nil
}
