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

// Hooks is the set of user extension points the supervisor invokes at
// prescribed moments of its lifecycle. A startup hook returning an
// error aborts startup and propagates to the caller.
//
// Concrete types embed Defaults and override only what they need.
type Hooks interface {
	// PreBind / PostBind surround the creation of the parent-owned
	// listening socket. Neither runs in port-reuse mode, where the
	// bind happens in each worker instead.
	PreBind() error
	PostBind() error

	// PreSignalSetup / PostSignalSetup surround the installation of
	// the hang-up, interrupt and terminate signal handlers.
	PreSignalSetup() error
	PostSignalSetup() error

	// PreInitChildren / PostInitChildren surround the initial fork of
	// MinWorkers workers.
	PreInitChildren() error
	PostInitChildren() error

	// PreLoop is the last hook before the supervision loop takes over.
	PreLoop() error

	// PreServerClose runs after the loop has exited, before workers
	// are told to shut down and the listening socket is released.
	PreServerClose() error

	// HupHandler runs when the supervisor receives a hang-up signal.
	// The default does nothing; override it for config reload.
	HupHandler(s *Supervisor)

	// IntHandler / TermHandler run on interrupt and terminate. The
	// defaults stop the supervisor, which drains gracefully.
	IntHandler(s *Supervisor)
	TermHandler(s *Supervisor)
}

// Defaults implements Hooks with the stock behavior: every lifecycle
// hook is a no-op, hang-up is ignored, interrupt and terminate stop
// the supervisor.
type Defaults struct{}

func (Defaults) PreBind() error { return nil }
func (Defaults) PostBind() error { return nil }
func (Defaults) PreSignalSetup() error { return nil }
func (Defaults) PostSignalSetup() error { return nil }
func (Defaults) PreInitChildren() error { return nil }
func (Defaults) PostInitChildren() error { return nil }
func (Defaults) PreLoop() error { return nil }
func (Defaults) PreServerClose() error { return nil }

func (Defaults) HupHandler(*Supervisor) {}

func (Defaults) IntHandler(s *Supervisor) { s.Close() }

func (Defaults) TermHandler(s *Supervisor) { s.Close() }

var _ Hooks = Defaults{}
