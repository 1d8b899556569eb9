/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package listener implements the two binding modes of the framework: a
// parent-owned, inherited shared socket, and a per-worker SO_REUSEPORT
// socket where the kernel load-balances connections across workers.
package listener

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	libptc "github.com/nabbar/golib/network/protocol"
)

// AcceptTimeout bounds accept latency after a lost race between
// workers polling the same shared socket.
const AcceptTimeout = 10 * time.Millisecond

// Config describes the address and mode a listener is created with.
type Config struct {
	Network   libptc.NetworkProtocol
	Address   string
	Backlog   int
	ReusePort bool
}

// ReusePortSupported reports whether SO_REUSEPORT can be requested on
// the running platform. Callers must fall back to shared-socket mode
// when it cannot.
func ReusePortSupported() bool {
	return reusePortSupported
}

// BindShared creates the parent-owned listening socket of
// shared-socket mode: address-reuse set, bound, and (for TCP) listening
// with the configured backlog. It returns the raw *os.File so the
// caller can hand it to workers via os/exec.Cmd.ExtraFiles.
func BindShared(cfg Config) (*os.File, net.Addr, error) {
	switch cfg.Network {
	case libptc.NetworkTCP:
		return bindTCP(cfg)

	case libptc.NetworkUDP:
		lc := net.ListenConfig{
			Control: func(_, _ string, rc syscall.RawConn) error {
				var optErr error
				if err := rc.Control(func(fd uintptr) {
					optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				}); err != nil {
					return err
				}
				return optErr
			},
		}
		c, err := lc.ListenPacket(context.Background(), libptc.NetworkUDP.Code(), cfg.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("listener: listen udp: %w", err)
		}
		uc, ok := c.(*net.UDPConn)
		if !ok {
			return nil, nil, fmt.Errorf("listener: unexpected conn type %T", c)
		}
		f, err := uc.File()
		if err != nil {
			return nil, nil, fmt.Errorf("listener: udpconn file: %w", err)
		}
		addr := uc.LocalAddr()
		_ = uc.Close()
		return f, addr, nil

	default:
		return nil, nil, fmt.Errorf("listener: unsupported network %q", cfg.Network.Code())
	}
}

// bindTCP builds the TCP listening socket by hand so the configured
// backlog reaches the listen call, which net.Listen does not expose.
func bindTCP(cfg Config) (*os.File, net.Addr, error) {
	ap, err := netip.ParseAddrPort(cfg.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("listener: parse address %q: %w", cfg.Address, err)
	}

	family := unix.AF_INET
	if ap.Addr().Is6() && !ap.Addr().Is4In6() {
		family = unix.AF_INET6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("listener: socket: %w", err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, nil, fmt.Errorf("listener: setsockopt reuseaddr: %w", err)
	}

	var sa unix.Sockaddr
	if family == unix.AF_INET6 {
		s := &unix.SockaddrInet6{Port: int(ap.Port())}
		s.Addr = ap.Addr().As16()
		sa = s
	} else {
		s := &unix.SockaddrInet4{Port: int(ap.Port())}
		s.Addr = ap.Addr().As4()
		sa = s
	}

	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, nil, fmt.Errorf("listener: bind %s: %w", cfg.Address, err)
	}

	backlog := cfg.Backlog
	if backlog < 1 {
		backlog = unix.SOMAXCONN
	}
	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, nil, fmt.Errorf("listener: listen: %w", err)
	}

	f := os.NewFile(uintptr(fd), "prefork-listener")

	// Read the bound address back from the live socket so a configured
	// port of 0 reports the kernel-assigned port.
	l, err := net.FileListener(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("listener: filelistener: %w", err)
	}
	addr := l.Addr()
	_ = l.Close()

	return f, addr, nil
}

// FromInheritedFd reconstructs a net.Listener (TCP) or net.PacketConn
// (UDP) from a descriptor inherited across a re-exec.
func FromInheritedFd(network libptc.NetworkProtocol, fd uintptr) (l net.Listener, pc net.PacketConn, err error) {
	f := os.NewFile(fd, "prefork-listener")
	if f == nil {
		return nil, nil, fmt.Errorf("listener: invalid inherited fd %d", fd)
	}
	defer f.Close()

	switch network {
	case libptc.NetworkTCP:
		l, err = net.FileListener(f)
		if err != nil {
			return nil, nil, fmt.Errorf("listener: filelistener: %w", err)
		}
		return l, nil, nil

	case libptc.NetworkUDP:
		pc, err = net.FilePacketConn(f)
		if err != nil {
			return nil, nil, fmt.Errorf("listener: filepacketconn: %w", err)
		}
		return nil, pc, nil

	default:
		return nil, nil, fmt.Errorf("listener: unsupported network %q", network.Code())
	}
}

// BindReusePort creates a worker-owned socket with SO_REUSEPORT set,
// used in port-reuse mode. Each worker calls this independently; the
// kernel load-balances inbound connections across every socket bound
// to the same address with the option set.
func BindReusePort(cfg Config) (l net.Listener, pc net.PacketConn, err error) {
	if !reusePortSupported {
		return nil, nil, fmt.Errorf("listener: SO_REUSEPORT not supported on this platform")
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unixSOReusePort, 1)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	switch cfg.Network {
	case libptc.NetworkTCP:
		nl, err := lc.Listen(context.Background(), libptc.NetworkTCP.Code(), cfg.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("listener: reuseport listen tcp: %w", err)
		}
		return nl, nil, nil

	case libptc.NetworkUDP:
		npc, err := lc.ListenPacket(context.Background(), libptc.NetworkUDP.Code(), cfg.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("listener: reuseport listen udp: %w", err)
		}
		return nil, npc, nil

	default:
		return nil, nil, fmt.Errorf("listener: unsupported network %q", cfg.Network.Code())
	}
}

// BoundAddrPort extracts the address a listener or packet conn is
// actually bound to, read from the live socket rather than from the
// configured address.
func BoundAddrPort(l net.Listener, pc net.PacketConn) (string, bool) {
	switch {
	case l != nil:
		return l.Addr().String(), true
	case pc != nil:
		return pc.LocalAddr().String(), true
	default:
		return "", false
	}
}
