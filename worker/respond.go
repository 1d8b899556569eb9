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

package worker

import (
	"bytes"
	"fmt"
	"net"
	"time"
)

// udpUnit adapts one received datagram to the net.Conn shape the hook
// pipeline expects, while also exposing RespondTo for UDP services
// that have no per-client socket to write back on.
type udpUnit struct {
	pc      net.PacketConn
	addr    net.Addr
	payload []byte
	read    int
}

// RespondTo sends payload back to the datagram's origin address via
// the shared packet socket.
func (u *udpUnit) RespondTo(payload []byte) error {
	_, err := u.pc.WriteTo(payload, u.addr)
	if err != nil {
		return fmt.Errorf("worker: respond_to: %w", err)
	}
	return nil
}

func (u *udpUnit) Read(b []byte) (int, error) {
	if u.read >= len(u.payload) {
		return 0, fmt.Errorf("worker: datagram fully consumed")
	}
	n := copy(b, u.payload[u.read:])
	u.read += n
	return n, nil
}

// Write is equivalent to RespondTo with no payload retained; hooks
// that prefer an io.Writer-shaped Conn (rather than the explicit
// RespondTo helper) can use it directly.
func (u *udpUnit) Write(b []byte) (int, error) {
	if err := u.RespondTo(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (u *udpUnit) Close() error                       { return nil }
func (u *udpUnit) LocalAddr() net.Addr                { return u.pc.LocalAddr() }
func (u *udpUnit) RemoteAddr() net.Addr               { return u.addr }
func (u *udpUnit) SetDeadline(t time.Time) error      { return nil }
func (u *udpUnit) SetReadDeadline(t time.Time) error  { return nil }
func (u *udpUnit) SetWriteDeadline(t time.Time) error { return nil }

var _ net.Conn = (*udpUnit)(nil)

// Payload returns the full datagram body, for hooks that want to parse
// it directly rather than through Read.
func (u *udpUnit) Payload() []byte {
	return bytes.Clone(u.payload)
}

// RespondTo extracts the per-datagram responder from a net.Conn handed
// to a worker hook in UDP mode. It returns false for TCP connections,
// which have no analogous helper.
func RespondTo(conn net.Conn, payload []byte) (ok bool, err error) {
	u, ok := conn.(*udpUnit)
	if !ok {
		return false, nil
	}
	return true, u.RespondTo(payload)
}
