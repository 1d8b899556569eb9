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

// Package worker implements the per-process runtime that services accepted
// connections: the event loop that multiplexes the shared listening endpoint
// with the control channel, runs the user hook pipeline, reports state
// transitions to the supervisor, and honors graceful shutdown mid-request.
package worker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libptc "github.com/nabbar/golib/network/protocol"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/control"
)

// AcceptPoll bounds how long a shared-socket Accept blocks before the
// worker re-checks its closed flag. Keeping it short bounds accept
// latency after a lost race between workers polling the same socket.
const AcceptPoll = 10 * time.Millisecond

// ShutdownDrain is the brief pause before the process exits, giving the
// supervisor time to observe the final control-channel message.
const ShutdownDrain = 100 * time.Millisecond

// Config configures a single worker's runtime loop.
type Config struct {
	Protocol    libptc.NetworkProtocol
	MaxRequests int // 0 means unlimited
}

// Runtime drives one worker process's accept/service loop.
type Runtime struct {
	hooks    Hooks
	ctl      *control.Channel
	listener net.Listener
	packet   net.PacketConn
	cfg      Config
	log      liblog.FuncLog

	requests uint64
	closed   atomic.Bool
	state    atomic.Int32
	lastErr  error
}

// New constructs a Runtime. Exactly one of l or pc must be non-nil,
// according to the configured protocol.
func New(hooks Hooks, ctl *control.Channel, l net.Listener, pc net.PacketConn, cfg Config, log liblog.FuncLog) *Runtime {
	if hooks == nil {
		hooks = Defaults{}
	}
	return &Runtime{
		hooks:    hooks,
		ctl:      ctl,
		listener: l,
		packet:   pc,
		cfg:      cfg,
		log:      log,
	}
}

func (r *Runtime) setState(s State) {
	r.state.Store(int32(s))
}

// State returns the worker's current lifecycle state.
func (r *Runtime) State() State {
	return State(r.state.Load())
}

// Protocol returns the network protocol this worker services.
func (r *Runtime) Protocol() libptc.NetworkProtocol {
	return r.cfg.Protocol
}

// RequestsHandled returns how many units of work this worker has
// completed so far.
func (r *Runtime) RequestsHandled() uint64 {
	return atomic.LoadUint64(&r.requests)
}

// Closed reports whether a graceful-shutdown command has been received.
func (r *Runtime) Closed() bool {
	return r.closed.Load()
}

// Error returns the hook error that terminated the worker, if any.
func (r *Runtime) Error() error {
	return r.lastErr
}

func (r *Runtime) report(code event.Code, payload string) {
	if err := r.ctl.Send(code, []byte(payload)); err != nil && r.log != nil {
		r.log().Entry(loglvl.WarnLevel, "control channel send failed").ErrorAdd(true, err).FieldAdd("event", code.String()).Log()
	}
}

func (r *Runtime) count() string {
	return strconv.FormatUint(atomic.LoadUint64(&r.requests), 10)
}

// Run drives the accept/service loop until ctx is cancelled, the
// control channel delivers Close (or EOF), or a terminating condition
// (hook error, request cap) is reached. It always performs the
// termination sequence before returning; a non-nil return means the
// process should exit with a nonzero status.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.hooks.Initialize(); err != nil {
		r.lastErr = fmt.Errorf("worker: initialize: %w", err)
		r.report(event.ExitingError, r.lastErr.Error())
		r.terminate()
		return r.lastErr
	}

	if r.cfg.Protocol == libptc.NetworkTCP && r.listener == nil ||
		r.cfg.Protocol == libptc.NetworkUDP && r.packet == nil {
		r.lastErr = fmt.Errorf("worker: no listening endpoint for protocol %s", r.cfg.Protocol.Code())
		r.report(event.ExitingError, r.lastErr.Error())
		r.terminate()
		return r.lastErr
	}

	go r.watchControl()

	r.setState(Waiting)
	r.report(event.Waiting, r.count())

	var runErr error
	switch r.cfg.Protocol {
	case libptc.NetworkTCP:
		runErr = r.runTCP(ctx)
	case libptc.NetworkUDP:
		runErr = r.runUDP(ctx)
	default:
		runErr = fmt.Errorf("worker: unsupported protocol %s", r.cfg.Protocol.Code())
	}

	r.lastErr = runErr
	r.terminate()
	return runErr
}

// watchControl observes the control channel for an explicit Close or an
// EOF (peer closed), and sets the closed flag the main loop checks
// between steps. EOF is treated as an implicit Close.
func (r *Runtime) watchControl() {
	for {
		code, _, err := r.ctl.Recv()
		if err != nil {
			r.closed.Store(true)
			return
		}
		if code == event.Close {
			r.closed.Store(true)
			return
		}
	}
}

// done runs the after-step checks of the worker state machine: the
// closed flag set by a Close command, then the request cap.
func (r *Runtime) done() bool {
	if r.closed.Load() {
		return true
	}
	if r.cfg.MaxRequests > 0 && atomic.LoadUint64(&r.requests) >= uint64(r.cfg.MaxRequests) {
		r.setState(Exiting)
		r.report(event.ExitingMax, "")
		return true
	}
	return false
}

func (r *Runtime) runTCP(ctx context.Context) error {
	for {
		if r.done() || ctx.Err() != nil {
			return nil
		}

		if tl, ok := r.listener.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now().Add(AcceptPoll))
		}

		conn, err := r.listener.Accept()
		if err != nil {
			// a timeout here is either the closed-flag re-check firing,
			// or the accept race of a shared socket: another worker won
			// the connection and this accept timed out empty-handed
			if isTimeout(err) || isBenignAcceptRace(err) {
				continue
			}
			return fmt.Errorf("worker: accept: %w", err)
		}

		if err := r.service(conn, conn.RemoteAddr()); err != nil {
			_ = conn.Close()
			r.setState(Exiting)
			r.report(event.ExitingError, err.Error())
			return err
		}
	}
}

func (r *Runtime) runUDP(ctx context.Context) error {
	buf := make([]byte, 64*1024)

	for {
		if r.done() || ctx.Err() != nil {
			return nil
		}

		if uc, ok := r.packet.(*net.UDPConn); ok {
			_ = uc.SetReadDeadline(time.Now().Add(AcceptPoll))
		}

		n, addr, err := r.packet.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("worker: recvfrom: %w", err)
		}

		unit := &udpUnit{pc: r.packet, addr: addr, payload: append([]byte(nil), buf[:n]...)}
		if err := r.service(unit, addr); err != nil {
			r.setState(Exiting)
			r.report(event.ExitingError, err.Error())
			return err
		}
	}
}

// service runs the hook pipeline for one accepted unit of work:
// post_accept, allow_deny, process_request or request_denied, close of
// the client socket (TCP only), post_process_request, then the WAITING
// report carrying the updated request count.
func (r *Runtime) service(conn net.Conn, addr net.Addr) error {
	r.setState(Busy)
	r.report(event.Busy, r.count())

	if err := r.hooks.PostAccept(conn, addr); err != nil {
		return fmt.Errorf("post_accept: %w", err)
	}

	allowed, err := r.hooks.AllowDeny(conn, addr)
	if err != nil {
		return fmt.Errorf("allow_deny: %w", err)
	}

	if allowed {
		if err = r.hooks.ProcessRequest(conn, addr); err != nil {
			return fmt.Errorf("process_request: %w", err)
		}
	} else {
		if err = r.hooks.RequestDenied(conn, addr); err != nil {
			return fmt.Errorf("request_denied: %w", err)
		}
	}

	if r.cfg.Protocol == libptc.NetworkTCP {
		_ = conn.Close()
	}

	if err = r.hooks.PostProcessRequest(conn, addr); err != nil {
		return fmt.Errorf("post_process_request: %w", err)
	}

	atomic.AddUint64(&r.requests, 1)
	r.setState(Waiting)
	r.report(event.Waiting, r.count())
	return nil
}

// terminate performs the exit sequence: close both endpoints, run the
// user shutdown hook, then pause so the supervisor can drain the final
// control message before the process goes away.
func (r *Runtime) terminate() {
	r.setState(Exiting)

	if r.listener != nil {
		_ = r.listener.Close()
	}
	if r.packet != nil {
		_ = r.packet.Close()
	}
	_ = r.ctl.Close()

	if err := r.hooks.Shutdown(); err != nil && r.log != nil {
		r.log().Entry(loglvl.WarnLevel, "shutdown hook failed").ErrorAdd(true, err).Log()
	}

	time.Sleep(ShutdownDrain)
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}

// isBenignAcceptRace reports whether err is the expected, non-fatal
// outcome of several workers racing to accept on the same ready shared
// socket: the kernel handed the connection to a different worker.
func isBenignAcceptRace(err error) bool {
	ne, ok := err.(net.Error)
	if !ok {
		return false
	}
	t, ok := err.(interface{ Temporary() bool })
	return ok && !ne.Timeout() && t.Temporary()
}
