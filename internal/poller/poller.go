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

// Package poller provides a uniform readiness-multiplexing interface
// over the best polling primitive available on the running platform:
// epoll on Linux, kqueue on BSD/Darwin, select as the universal
// fallback.
package poller

import "fmt"

// Mask is a bitmask of readiness conditions.
type Mask uint8

const (
	Read Mask = 1 << iota
	Write
	Err
)

// Event is one readiness notification: the registered file descriptor
// and which conditions fired.
type Event struct {
	Fd    int
	Ready Mask
}

// ErrNoMask is returned by Register when neither a default mask nor a
// per-call mask was supplied.
var ErrNoMask = fmt.Errorf("poller: an event mask is required")

// Poller is the platform-neutral readiness multiplexer used by the
// supervisor to wait on worker control-channel descriptors. Workers do
// not use it: they bound each Accept with a deadline instead.
type Poller interface {
	// Register starts monitoring fd for the given mask. If mask is 0,
	// the poller's default mask (set at construction) is used; if
	// that is also 0, ErrNoMask is returned.
	Register(fd int, mask Mask) error
	// Modify changes the mask for an already-registered fd.
	Modify(fd int, mask Mask) error
	// Unregister stops monitoring fd.
	Unregister(fd int) error
	// Wait blocks up to timeout (zero means return immediately,
	// negative means block indefinitely) and returns the descriptors
	// that became ready. A wait interrupted by a signal returns an
	// empty list and a nil error so callers can re-check their stop
	// conditions.
	Wait(timeoutMillis int) ([]Event, error)
	// Close releases the poller's own resources (epoll/kqueue fd).
	Close() error
}

// New returns the best Poller implementation for the running GOOS,
// falling back to the select(2)-based implementation when neither
// epoll nor kqueue is available.
func New(defaultMask Mask) (Poller, error) {
	return newPlatformPoller(defaultMask)
}
