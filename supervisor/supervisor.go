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

// Package supervisor implements the parent side of the prefork model:
// it forks worker processes, tracks each worker's state over a private
// control channel, sizes the pool against the configured spare bounds,
// and drives graceful shutdown on signals or request.
package supervisor

import (
	"context"
	"net/netip"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	libctx "github.com/nabbar/golib/context"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	librun "github.com/nabbar/golib/server/runner/startStop"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/listener"
	"github.com/nabbar/prefork/internal/poller"
)

// PollTimeout bounds one supervision-loop wait, so the stop flag is
// observed within about a second even when no worker reports anything.
const PollTimeout = time.Second

// Supervisor owns the worker pool of one listening endpoint.
type Supervisor struct {
	cfg   Config
	hooks Hooks
	log   liblog.FuncLog
	obs   FuncSnapshot

	self       string
	workers    libctx.Config[int]
	poll       poller.Poller
	listenFile *os.File
	bound      netip.AddrPort
	hasBound   bool

	stop   atomic.Bool
	runner librun.StartStop

	reapQ    chan *exec.Cmd
	reapDone chan struct{}
	sigCh    chan os.Signal
}

// New validates cfg, creates the poller, and binds the listening
// endpoint (unless port-reuse mode moves the bind into each worker).
// The PreBind and PostBind hooks run here, so the bound address is
// available before Run is called.
func New(ctx context.Context, cfg Config, h Hooks, log liblog.FuncLog, obs FuncSnapshot) (*Supervisor, liberr.Error) {
	if h == nil {
		h = Defaults{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ReusePort && !listener.ReusePortSupported() {
		// fall back to a parent-owned shared socket
		cfg.ReusePort = false
		if l := logOf(log); l != nil {
			l.Entry(loglvl.WarnLevel, "SO_REUSEPORT not available, falling back to shared-socket mode").Log()
		}
	}

	self, err := os.Executable()
	if err != nil {
		return nil, ErrorSpawnFailed.Error(err)
	}

	p, err := poller.New(poller.Read)
	if err != nil {
		return nil, ErrorPollerCreate.Error(err)
	}

	s := &Supervisor{
		cfg:     cfg,
		hooks:   h,
		log:     log,
		obs:     obs,
		self:    self,
		workers: libctx.NewConfig[int](func() context.Context { return ctx }),
		poll:    p,
	}

	if !cfg.ReusePort {
		if err := h.PreBind(); err != nil {
			_ = p.Close()
			return nil, ErrorBindFailed.Error(err)
		}

		f, addr, err := listener.BindShared(listener.Config{
			Network: cfg.Protocol,
			Address: cfg.Address(),
			Backlog: cfg.Backlog,
		})
		if err != nil {
			_ = p.Close()
			return nil, ErrorBindFailed.Error(err)
		}
		s.listenFile = f

		if ap, e := netip.ParseAddrPort(addr.String()); e == nil {
			s.bound = ap
			s.hasBound = true
		}

		if err := h.PostBind(); err != nil {
			_ = p.Close()
			_ = f.Close()
			return nil, ErrorBindFailed.Error(err)
		}
	}

	s.runner = librun.New(s.Run, func(context.Context) error {
		s.Close()
		return nil
	})

	return s, nil
}

// BoundAddress returns the address the parent-owned listening socket
// is actually bound to, read from the live socket. In port-reuse mode
// there is no parent socket and ok is false.
func (s *Supervisor) BoundAddress() (addr netip.AddrPort, ok bool) {
	return s.bound, s.hasBound
}

// Close requests a stop; the supervision loop exits at its next
// iteration and shuts the pool down gracefully. Safe to call more
// than once, from any goroutine.
func (s *Supervisor) Close() {
	s.stop.Store(true)
}

// Start launches Run in the background. Stop, IsRunning and Uptime
// track that run.
func (s *Supervisor) Start(ctx context.Context) error {
	return s.runner.Start(ctx)
}

// Stop requests a graceful stop of a Start-launched run and waits for
// its completion.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.runner.Stop(ctx)
}

// Restart stops then starts the supervisor again.
func (s *Supervisor) Restart(ctx context.Context) error {
	return s.runner.Restart(ctx)
}

// IsRunning reports whether a Start-launched run is live.
func (s *Supervisor) IsRunning() bool {
	return s.runner.IsRunning()
}

// Uptime returns how long the current run has been live.
func (s *Supervisor) Uptime() time.Duration {
	return s.runner.Uptime()
}

// Run drives the full supervisor lifecycle and blocks until a stop is
// requested by signal, Close, or ctx cancellation: signal setup, the
// initial fork of MinWorkers workers, the supervision loop, then the
// graceful shutdown of every worker.
func (s *Supervisor) Run(ctx context.Context) error {
	s.stop.Store(false)

	if err := s.hooks.PreSignalSetup(); err != nil {
		return err
	}
	s.signalSetup()
	defer s.signalTeardown()
	if err := s.hooks.PostSignalSetup(); err != nil {
		return err
	}

	s.startReaper()

	if err := s.hooks.PreInitChildren(); err != nil {
		s.stopReaper()
		return err
	}
	for i := 0; i < s.cfg.MinWorkers; i++ {
		if err := s.spawnWorker(); err != nil {
			s.shutdownServer()
			s.stopReaper()
			return err
		}
	}
	if err := s.hooks.PostInitChildren(); err != nil {
		s.shutdownServer()
		s.stopReaper()
		return err
	}

	if err := s.hooks.PreLoop(); err != nil {
		s.shutdownServer()
		s.stopReaper()
		return err
	}

	s.loop(ctx)

	hookErr := s.hooks.PreServerClose()

	s.shutdownServer()
	s.stopReaper()

	return hookErr
}

func (s *Supervisor) loop(ctx context.Context) {
	for !s.stop.Load() && ctx.Err() == nil {
		evs, err := s.poll.Wait(int(PollTimeout.Milliseconds()))
		if err != nil {
			// interrupted waits surface as empty event lists; anything
			// else is logged and retried on the next iteration
			if l := s.logger(); l != nil {
				l.Entry(loglvl.ErrorLevel, "poll failed").ErrorAdd(true, err).Log()
			}
			continue
		}

		for _, ev := range evs {
			if v, ok := s.workers.Load(ev.Fd); ok {
				s.handleWorkerEvent(v.(*workerRecord))
			} else {
				// not one of ours anymore: stop watching it
				_ = s.poll.Unregister(ev.Fd)
			}
		}

		s.assess()
	}
}

// handleWorkerEvent receives exactly one control message from a ready
// worker and updates the bookkeeping. A read failure means the peer
// closed its end, which counts as an exit.
func (s *Supervisor) handleWorkerEvent(rec *workerRecord) {
	code, payload, err := rec.ctl.Recv()
	if err != nil {
		s.removeWorker(rec, true)
		return
	}

	switch {
	case code.Exiting():
		if code == event.ExitingError {
			if l := s.logger(); l != nil {
				l.Entry(loglvl.ErrorLevel, "worker exited on error").
					FieldAdd("pid", rec.pid).
					FieldAdd("reason", string(payload)).
					Log()
			}
		}
		s.removeWorker(rec, true)

	case code == event.Waiting || code == event.Busy:
		rec.state = code
		if n, e := strconv.ParseUint(string(payload), 10, 64); e == nil && n >= rec.processed {
			rec.processed = n
		}
	}
}

// removeWorker unregisters and forgets a worker record, then reaps the
// process, in the background while the loop is live.
func (s *Supervisor) removeWorker(rec *workerRecord, background bool) {
	_ = s.poll.Unregister(rec.fd)
	_ = rec.ctl.Close()
	s.workers.Delete(rec.fd)
	s.reap(rec.cmd, background)
}

// killWorker runs the kill protocol: a Close message (send failures
// are benign, the worker may already be gone), then the same teardown
// as a reported exit.
func (s *Supervisor) killWorker(rec *workerRecord, background bool) {
	_ = rec.ctl.Send(event.Close, nil)
	s.removeWorker(rec, background)
}

// snapshot captures the pool state for the sizing controller and the
// metrics observer.
func (s *Supervisor) snapshot() Snapshot {
	var snap Snapshot
	s.workers.Walk(func(_ int, val interface{}) bool {
		if rec, ok := val.(*workerRecord); ok {
			snap.Workers = append(snap.Workers, WorkerState{
				Pid:       rec.pid,
				State:     rec.state,
				Processed: rec.processed,
			})
		}
		return true
	})
	return snap
}

// assess runs the sizing controller over the current snapshot and
// applies its decision: forks happen immediately, retirements send
// Close and let the exits arrive on later iterations.
func (s *Supervisor) assess() {
	snap := s.snapshot()
	d := assessState(s.cfg, snap)

	for i := 0; i < d.Fork; i++ {
		if err := s.spawnWorker(); err != nil {
			if l := s.logger(); l != nil {
				l.Entry(loglvl.ErrorLevel, "cannot fork worker").ErrorAdd(true, err).Log()
			}
			break
		}
	}

	for _, pid := range d.Kill {
		if rec := s.findByPid(pid); rec != nil {
			s.killWorker(rec, true)
		}
	}

	if s.obs != nil {
		s.obs(s.snapshot())
	}
}

func (s *Supervisor) findByPid(pid int) *workerRecord {
	var found *workerRecord
	s.workers.Walk(func(_ int, val interface{}) bool {
		if rec, ok := val.(*workerRecord); ok && rec.pid == pid {
			found = rec
			return false
		}
		return true
	})
	return found
}

// shutdownServer tells every worker to close, reaps each one
// synchronously, then releases the listening socket and the poller.
func (s *Supervisor) shutdownServer() {
	if l := s.logger(); l != nil {
		l.Entry(loglvl.InfoLevel, "starting server shutdown").Log()
	}

	var recs []*workerRecord
	s.workers.Walk(func(_ int, val interface{}) bool {
		if rec, ok := val.(*workerRecord); ok {
			recs = append(recs, rec)
		}
		return true
	})
	for _, rec := range recs {
		s.killWorker(rec, false)
	}

	if s.listenFile != nil {
		_ = s.listenFile.Close()
		s.listenFile = nil
		s.hasBound = false
	}
	_ = s.poll.Close()

	if l := s.logger(); l != nil {
		l.Entry(loglvl.InfoLevel, "server shutdown completed").Log()
	}
}

func (s *Supervisor) signalSetup() {
	s.sigCh = make(chan os.Signal, 4)
	signal.Notify(s.sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range s.sigCh {
			switch sig {
			case syscall.SIGHUP:
				s.hooks.HupHandler(s)
			case syscall.SIGINT:
				s.hooks.IntHandler(s)
			case syscall.SIGTERM:
				s.hooks.TermHandler(s)
			}
		}
	}()
}

func (s *Supervisor) signalTeardown() {
	signal.Stop(s.sigCh)
	close(s.sigCh)
}

func (s *Supervisor) logger() liblog.Logger {
	return logOf(s.log)
}

func logOf(fct liblog.FuncLog) liblog.Logger {
	if fct == nil {
		return nil
	}
	return fct()
}
