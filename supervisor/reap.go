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

import "os/exec"

// The reaper drains terminated workers off the supervision loop so a
// slow child exit never stalls polling. Each command is posted here
// exactly once, after its record has been removed from the table, so
// the single Wait call per child holds across the event path and the
// kill path. Final shutdown bypasses the reaper and waits inline.

func (s *Supervisor) startReaper() {
	s.reapQ = make(chan *exec.Cmd, reapQueueLen)
	s.reapDone = make(chan struct{})

	go func() {
		defer close(s.reapDone)
		for cmd := range s.reapQ {
			_ = cmd.Wait()
		}
	}()
}

// reap hands a terminated worker to the background reaper, falling
// back to an inline wait once the reaper has been stopped.
func (s *Supervisor) reap(cmd *exec.Cmd, background bool) {
	if !background {
		_ = cmd.Wait()
		return
	}

	select {
	case s.reapQ <- cmd:
	default:
		// queue full: wait inline rather than dropping the child
		_ = cmd.Wait()
	}
}

// stopReaper closes the queue and blocks until every posted child has
// been waited on.
func (s *Supervisor) stopReaper() {
	if s.reapQ == nil {
		return
	}
	close(s.reapQ)
	<-s.reapDone
	s.reapQ = nil
}

const reapQueueLen = 64
