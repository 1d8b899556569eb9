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

package prefork

import (
	"context"
	"net"
	"net/netip"

	liblog "github.com/nabbar/golib/logger"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/control"
	"github.com/nabbar/prefork/internal/listener"
	"github.com/nabbar/prefork/supervisor"
	"github.com/nabbar/prefork/worker"
)

// Manager ties the two halves of the prefork model together behind one
// entry point. The same binary runs both roles: Run detects from the
// spawn environment whether this process is the supervisor or one of
// its workers, and drives the matching loop. The child hooks supply
// the application behavior; everything else is framework mechanism.
type Manager struct {
	cfg   Config
	child worker.Hooks

	hooks supervisor.Hooks
	log   liblog.FuncLog
	obs   supervisor.FuncSnapshot

	sup *supervisor.Supervisor
}

// New creates a Manager servicing connections with the given child
// hooks. Optional collaborators are attached with the Set functions
// before Run.
func New(cfg Config, child worker.Hooks) *Manager {
	return &Manager{
		cfg:   cfg,
		child: child,
	}
}

// SetLogger attaches a logger used by both supervisor and workers.
func (m *Manager) SetLogger(log liblog.FuncLog) {
	m.log = log
}

// SetSupervisorHooks overrides the supervisor lifecycle hooks.
func (m *Manager) SetSupervisorHooks(h supervisor.Hooks) {
	m.hooks = h
}

// SetSnapshotObserver attaches a pool observer, typically
// (*metrics.Pool).Observe.
func (m *Manager) SetSnapshotObserver(obs supervisor.FuncSnapshot) {
	m.obs = obs
}

// Run blocks until shutdown. In the parent it validates the
// configuration, binds, forks the initial pool and supervises it; in a
// worker process it services connections until told to close. A
// non-nil return from a worker run means the process should exit with
// a nonzero status.
func (m *Manager) Run(ctx context.Context) error {
	if supervisor.IsChildProcess() {
		return m.runChild(ctx)
	}
	return m.runParent(ctx)
}

// Close requests a graceful stop of a running parent.
func (m *Manager) Close() {
	if m.sup != nil {
		m.sup.Close()
	}
}

// BoundAddress reports the parent-owned listening address once Run (or
// the underlying bind) has happened. ok is false in port-reuse mode
// and in worker processes.
func (m *Manager) BoundAddress() (addr netip.AddrPort, ok bool) {
	if m.sup == nil {
		return netip.AddrPort{}, false
	}
	return m.sup.BoundAddress()
}

func (m *Manager) runParent(ctx context.Context) error {
	s, err := supervisor.New(ctx, m.cfg.Supervisor(), m.hooks, m.log, m.obs)
	if err != nil {
		return err
	}
	m.sup = s

	return s.Run(ctx)
}

func (m *Manager) runChild(ctx context.Context) error {
	settings, err := supervisor.ReadChildSettings()
	if err != nil {
		return ErrorChildEnviron.Error(err)
	}

	ctl, err := control.NewChannelFromFd(supervisor.ControlFd)
	if err != nil {
		return ErrorChildEnviron.Error(err)
	}

	var (
		l  net.Listener
		pc net.PacketConn
	)

	if settings.ReusePort {
		// the bind moved from the supervisor into each worker, and the
		// bind hooks move with it
		if l, pc, err = m.bindChild(settings, ctl); err != nil {
			return err
		}
	} else {
		if l, pc, err = listener.FromInheritedFd(settings.Protocol, supervisor.ListenerFd); err != nil {
			_ = ctl.Close()
			return ErrorChildEnviron.Error(err)
		}
	}

	rt := worker.New(m.child, ctl, l, pc, worker.Config{
		Protocol:    settings.Protocol,
		MaxRequests: settings.MaxRequests,
	}, m.log)

	return rt.Run(ctx)
}

// bindChild creates the worker-owned SO_REUSEPORT socket, reporting a
// hook or bind failure to the supervisor before giving up.
func (m *Manager) bindChild(settings supervisor.ChildSettings, ctl *control.Channel) (net.Listener, net.PacketConn, error) {
	fail := func(cause error) (net.Listener, net.PacketConn, error) {
		err := ErrorWorkerBind.Error(cause)
		_ = ctl.Send(event.ExitingError, []byte(err.Error()))
		_ = ctl.Close()
		return nil, nil, err
	}

	if err := m.child.PreBind(); err != nil {
		return fail(err)
	}

	l, pc, err := listener.BindReusePort(listener.Config{
		Network:   settings.Protocol,
		Address:   settings.Address,
		Backlog:   settings.Backlog,
		ReusePort: true,
	})
	if err != nil {
		return fail(err)
	}

	if err := m.child.PostBind(); err != nil {
		if l != nil {
			_ = l.Close()
		}
		if pc != nil {
			_ = pc.Close()
		}
		return fail(err)
	}

	return l, pc, nil
}
