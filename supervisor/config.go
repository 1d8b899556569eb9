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

package supervisor

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
	libptc "github.com/nabbar/golib/network/protocol"
)

// Config carries the immutable pool-sizing and binding parameters of a
// supervisor. It is validated once at construction and never mutated
// afterwards.
type Config struct {
	// MaxWorkers / MinWorkers bound the total pool size.
	MaxWorkers int
	MinWorkers int

	// MinSpares / MaxSpares bound the number of idle workers the
	// sizing controller keeps available.
	MinSpares int
	MaxSpares int

	// MaxRequests is the per-worker request cap before the worker
	// retires itself. Zero means unbounded.
	MaxRequests int

	// BindIP and Port locate the listening endpoint.
	BindIP string
	Port   int

	// Protocol selects TCP connections or UDP datagrams.
	Protocol libptc.NetworkProtocol

	// Backlog is the TCP listen backlog. Ignored for UDP.
	Backlog int

	// ReusePort, when true and supported by the OS, makes each worker
	// bind its own SO_REUSEPORT socket instead of inheriting a shared
	// one from the supervisor.
	ReusePort bool
}

// Address renders the host:port string the listening endpoint binds.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.BindIP, c.Port)
}

// Validate enforces the construction-time range constraints: worker
// bounds ordered, spare bounds ordered, a known protocol.
func (c Config) Validate() liberr.Error {
	out := ErrorParamsInvalid.Error(nil)

	if c.MinWorkers < 1 {
		out.Add(fmt.Errorf("min workers must be at least 1, got %d", c.MinWorkers))
	}
	if c.MinWorkers > c.MaxWorkers {
		out.Add(fmt.Errorf("min workers (%d) cannot exceed max workers (%d)", c.MinWorkers, c.MaxWorkers))
	}
	if c.MinSpares < 0 {
		out.Add(fmt.Errorf("min spares cannot be negative, got %d", c.MinSpares))
	}
	if c.MinSpares > c.MaxSpares {
		out.Add(fmt.Errorf("min spares (%d) cannot exceed max spares (%d)", c.MinSpares, c.MaxSpares))
	}
	if c.MaxRequests < 0 {
		out.Add(fmt.Errorf("max requests cannot be negative, got %d", c.MaxRequests))
	}
	if c.Port < 0 || c.Port > 65535 {
		out.Add(fmt.Errorf("port out of range: %d", c.Port))
	}

	switch c.Protocol {
	case libptc.NetworkTCP, libptc.NetworkUDP:
	default:
		return ErrorProtocolInvalid.Error(fmt.Errorf("got %q", c.Protocol.Code()))
	}

	if out.HasParent() {
		return out
	}

	return nil
}
