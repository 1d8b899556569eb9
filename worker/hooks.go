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

import "net"

// Hooks is the set of user extension points a worker invokes while
// servicing requests. Every method has a sensible no-op default, so a
// concrete child type only overrides what it needs by embedding
// Defaults.
type Hooks interface {
	// Initialize runs once, right after the worker process starts
	// (and, in shared-socket mode, after binding is inherited).
	Initialize() error

	// PreBind/PostBind run only in port-reuse mode, where binding
	// happens in the worker instead of the supervisor.
	PreBind() error
	PostBind() error

	// PostAccept runs right after a connection/datagram is accepted.
	// The connection and peer address are passed as arguments, as they
	// are to every per-request hook; Runtime does not keep them.
	PostAccept(conn net.Conn, address net.Addr) error

	// AllowDeny decides whether to service this unit of work.
	AllowDeny(conn net.Conn, address net.Addr) (bool, error)

	// RequestDenied runs instead of ProcessRequest when AllowDeny
	// returned false.
	RequestDenied(conn net.Conn, address net.Addr) error

	// ProcessRequest is the user's service routine.
	ProcessRequest(conn net.Conn, address net.Addr) error

	// PostProcessRequest runs after ProcessRequest (or
	// RequestDenied), before the worker announces WAITING again.
	PostProcessRequest(conn net.Conn, address net.Addr) error

	// Shutdown runs once, right before the worker process exits.
	Shutdown() error
}

// Defaults implements Hooks with no-op bodies so a concrete child type
// can embed it and override only the methods it needs.
type Defaults struct{}

func (Defaults) Initialize() error { return nil }
func (Defaults) PreBind() error { return nil }
func (Defaults) PostBind() error { return nil }

func (Defaults) PostAccept(net.Conn, net.Addr) error { return nil }

func (Defaults) AllowDeny(net.Conn, net.Addr) (bool, error) { return true, nil }

func (Defaults) RequestDenied(net.Conn, net.Addr) error { return nil }

func (Defaults) ProcessRequest(net.Conn, net.Addr) error { return nil }

func (Defaults) PostProcessRequest(net.Conn, net.Addr) error { return nil }

func (Defaults) Shutdown() error { return nil }

var _ Hooks = Defaults{}
