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

// Package prefork is a prefork network server framework: a pool of
// worker processes races on one listening endpoint (a shared inherited
// socket, or per-worker SO_REUSEPORT sockets), each worker servicing
// one TCP connection or UDP datagram at a time, while the parent
// process sizes the pool against configurable spare bounds.
//
// The framework supplies the mechanism: process supervision, socket
// sharing, per-worker control channels, state reporting, graceful
// shutdown on signals. The application supplies the policy through the
// worker.Hooks extension points, of which ProcessRequest is usually
// the only one that matters:
//
//	type echo struct{ worker.Defaults }
//
//	func (echo) ProcessRequest(conn net.Conn, _ net.Addr) error {
//		_, err := io.Copy(conn, conn)
//		return err
//	}
//
//	func main() {
//		m := prefork.New(prefork.DefaultConfig(), echo{})
//		if err := m.Run(context.Background()); err != nil {
//			os.Exit(1)
//		}
//	}
//
// Go cannot fork without exec, so workers are the same binary
// re-executed with inherited descriptors. Run detects the role from
// the spawn environment; main therefore needs no worker-specific
// branching, it just builds the same Manager in both roles.
package prefork
