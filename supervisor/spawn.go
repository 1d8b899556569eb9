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
	"os"
	"os/exec"
	"strconv"

	liberr "github.com/nabbar/golib/errors"
	libptc "github.com/nabbar/golib/network/protocol"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/control"
)

// Worker processes are the supervisor's own binary re-executed with a
// marker in the environment: Go cannot fork without exec, so the
// listening socket and the control channel cross the process boundary
// as inherited descriptors instead.
//
// Descriptor layout in the child, after stdin/stdout/stderr:
//   - fd 3: the child end of the control channel
//   - fd 4: the shared listening socket (absent in port-reuse mode)
const (
	EnvChildMarker = "PREFORK_CHILD"
	EnvProtocol    = "PREFORK_PROTOCOL"
	EnvAddress     = "PREFORK_ADDRESS"
	EnvBacklog     = "PREFORK_BACKLOG"
	EnvMaxRequests = "PREFORK_MAX_REQUESTS"
	EnvReusePort   = "PREFORK_REUSE_PORT"

	ControlFd  = 3
	ListenerFd = 4
)

// IsChildProcess reports whether the current process was spawned by a
// supervisor as a worker.
func IsChildProcess() bool {
	return os.Getenv(EnvChildMarker) == "1"
}

// ChildSettings is the worker-side view of the spawn environment,
// decoded from the variables the supervisor set.
type ChildSettings struct {
	Protocol    libptc.NetworkProtocol
	Address     string
	Backlog     int
	MaxRequests int
	ReusePort   bool
}

// ReadChildSettings decodes the spawn environment in a worker process.
func ReadChildSettings() (ChildSettings, error) {
	if !IsChildProcess() {
		return ChildSettings{}, fmt.Errorf("supervisor: not a worker process")
	}

	var (
		s   ChildSettings
		err error
	)

	s.Protocol = libptc.Parse(os.Getenv(EnvProtocol))
	s.Address = os.Getenv(EnvAddress)
	s.ReusePort = os.Getenv(EnvReusePort) == "1"

	if v := os.Getenv(EnvBacklog); v != "" {
		if s.Backlog, err = strconv.Atoi(v); err != nil {
			return ChildSettings{}, fmt.Errorf("supervisor: invalid backlog %q: %w", v, err)
		}
	}
	if v := os.Getenv(EnvMaxRequests); v != "" {
		if s.MaxRequests, err = strconv.Atoi(v); err != nil {
			return ChildSettings{}, fmt.Errorf("supervisor: invalid max requests %q: %w", v, err)
		}
	}

	return s, nil
}

// spawnWorker launches one worker process and registers it with the
// supervision loop. The parent end of the control channel is
// registered with the poller before the child starts, so the worker's
// initial WAITING report can never be lost.
func (s *Supervisor) spawnWorker() liberr.Error {
	parent, childFile, err := control.NewSocketPair()
	if err != nil {
		return ErrorSpawnFailed.Error(err)
	}

	fd, err := parent.Fd()
	if err != nil {
		_ = parent.Close()
		_ = childFile.Close()
		return ErrorSpawnFailed.Error(err)
	}

	if err = s.poll.Register(int(fd), 0); err != nil {
		_ = parent.Close()
		_ = childFile.Close()
		return ErrorSpawnFailed.Error(err)
	}

	cmd := exec.Command(s.self, os.Args[1:]...) // #nosec G204 -- re-exec of our own binary
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{childFile}
	if s.listenFile != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, s.listenFile)
	}

	reuse := "0"
	if s.cfg.ReusePort {
		reuse = "1"
	}
	cmd.Env = append(os.Environ(),
		EnvChildMarker+"=1",
		EnvProtocol+"="+s.cfg.Protocol.Code(),
		EnvAddress+"="+s.cfg.Address(),
		EnvBacklog+"="+strconv.Itoa(s.cfg.Backlog),
		EnvMaxRequests+"="+strconv.Itoa(s.cfg.MaxRequests),
		EnvReusePort+"="+reuse,
	)

	if err = cmd.Start(); err != nil {
		_ = s.poll.Unregister(int(fd))
		_ = parent.Close()
		_ = childFile.Close()
		return ErrorSpawnFailed.Error(err)
	}

	// the child holds its own copy now
	_ = childFile.Close()

	s.workers.Store(int(fd), &workerRecord{
		pid:   cmd.Process.Pid,
		cmd:   cmd,
		ctl:   parent,
		fd:    int(fd),
		state: event.Waiting,
	})

	return nil
}
