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

// Package control implements the framed control channel used by the
// supervisor to exchange state-report events with each worker process.
//
// A frame is a single event-code byte followed by a 4-byte big-endian
// payload length and the payload itself, so each end observes whole
// messages only.
package control

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nabbar/prefork/event"
)

// MaxPayload bounds a single frame's payload to guard against a
// misbehaving peer flooding the channel with a bogus length prefix.
const MaxPayload = 64 << 10

// Channel is a bidirectional, framed control connection. It is safe
// for one concurrent reader and one concurrent writer.
type Channel struct {
	conn net.Conn
	wmu  sync.Mutex
	rmu  sync.Mutex
}

// NewChannel wraps an already-connected net.Conn (typically produced by
// NewSocketPair) as a framed Channel.
func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// NewSocketPair creates a connected AF_UNIX SOCK_STREAM pair. The first
// returned Channel wraps the parent-side file descriptor; the second
// *os.File is the child-side descriptor, meant to be inherited across a
// re-exec via os/exec.Cmd.ExtraFiles and reconstructed in the child with
// NewChannelFromFd.
func NewSocketPair() (parent *Channel, childFile *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("control: socketpair: %w", err)
	}

	pf := os.NewFile(uintptr(fds[0]), "prefork-control-parent")
	cf := os.NewFile(uintptr(fds[1]), "prefork-control-child")

	pc, err := net.FileConn(pf)
	if err != nil {
		_ = pf.Close()
		_ = cf.Close()
		return nil, nil, fmt.Errorf("control: fileconn: %w", err)
	}
	_ = pf.Close()

	return NewChannel(pc), cf, nil
}

// NewChannelFromFd reconstructs a Channel from an inherited file
// descriptor number, the side of NewSocketPair run by a worker after
// re-exec.
func NewChannelFromFd(fd uintptr) (*Channel, error) {
	f := os.NewFile(fd, "prefork-control-worker")
	if f == nil {
		return nil, fmt.Errorf("control: invalid fd %d", fd)
	}

	c, err := net.FileConn(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("control: fileconn: %w", err)
	}
	_ = f.Close()

	return NewChannel(c), nil
}

// Send writes one framed message: event code byte, 4-byte big-endian
// payload length, payload bytes.
func (c *Channel) Send(code event.Code, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("control: payload too large: %d", len(payload))
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	hdr := make([]byte, 5)
	hdr[0] = byte(code)
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))

	if _, err := c.conn.Write(hdr); err != nil {
		return fmt.Errorf("control: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := c.conn.Write(payload); err != nil {
			return fmt.Errorf("control: write payload: %w", err)
		}
	}
	return nil
}

// Recv blocks until one framed message is available and returns it.
// io.EOF is returned verbatim when the peer has closed the channel.
func (c *Channel) Recv() (event.Code, []byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	hdr := make([]byte, 5)
	if _, err := io.ReadFull(c.conn, hdr); err != nil {
		return 0, nil, err
	}

	code := event.Code(hdr[0])
	n := binary.BigEndian.Uint32(hdr[1:])
	if n > MaxPayload {
		return 0, nil, fmt.Errorf("control: peer announced oversized payload: %d", n)
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return 0, nil, fmt.Errorf("control: read payload: %w", err)
		}
	}

	return code, payload, nil
}

// Close closes the underlying connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// Fd returns the underlying connection's raw file descriptor, for
// registering the channel directly with a poller.
func (c *Channel) Fd() (uintptr, error) {
	sc, ok := c.conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("control: underlying conn does not expose a raw fd")
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("control: syscallconn: %w", err)
	}

	var fd uintptr
	cerr := raw.Control(func(f uintptr) { fd = f })
	if cerr != nil {
		return 0, fmt.Errorf("control: control: %w", cerr)
	}
	return fd, nil
}
