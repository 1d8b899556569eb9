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
	"os/exec"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/control"
)

// workerRecord is the supervisor's bookkeeping for one live worker.
// It is created at spawn, mutated only by the supervision loop in
// response to that worker's control messages, and removed exactly once
// when the worker exits or is killed.
type workerRecord struct {
	pid       int
	cmd       *exec.Cmd
	ctl       *control.Channel
	fd        int
	state     event.Code
	processed uint64
}

// WorkerState is one worker's entry in a Snapshot.
type WorkerState struct {
	Pid       int
	State     event.Code
	Processed uint64
}

// Snapshot is a point-in-time view of the pool the sizing controller
// and the metrics observer consume.
type Snapshot struct {
	Workers []WorkerState
}

// Busy counts the workers currently servicing a request.
func (s Snapshot) Busy() int {
	n := 0
	for _, w := range s.Workers {
		if w.State == event.Busy {
			n++
		}
	}
	return n
}

// Spares counts the workers currently idle and able to accept work.
func (s Snapshot) Spares() int {
	return len(s.Workers) - s.Busy()
}

// FuncSnapshot receives a pool snapshot after each supervision-loop
// iteration; the metrics package provides the stock implementation.
type FuncSnapshot func(Snapshot)
