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

// Package event defines the closed set of control-channel event codes
// exchanged between a supervisor and its workers.
package event

import "fmt"

// Code identifies a message sent over the control channel. It is
// transmitted on the wire as a single byte. Codes are distinct bits so
// the supervisor can match any terminating event with a single mask.
type Code uint8

const (
	// Waiting reports the worker is idle and able to accept more work.
	Waiting Code = 1 << iota
	// Busy reports the worker is currently processing a request.
	Busy
	// ExitingError reports the worker is terminating because of an
	// unrecoverable error in a user hook.
	ExitingError
	// ExitingMax reports the worker is terminating after reaching its
	// configured maximum request count.
	ExitingMax
	// Close requests that the receiving worker shut down gracefully.
	Close

	// ExitingMask matches any worker-terminating event.
	ExitingMask = ExitingError | ExitingMax
)

func (c Code) String() string {
	switch c {
	case Waiting:
		return "waiting"
	case Busy:
		return "busy"
	case ExitingError:
		return "exiting_error"
	case ExitingMax:
		return "exiting_max"
	case Close:
		return "close"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Valid reports whether c belongs to the closed event set.
func (c Code) Valid() bool {
	switch c {
	case Waiting, Busy, ExitingError, ExitingMax, Close:
		return true
	default:
		return false
	}
}

// Exiting reports whether c denotes any worker-terminating event.
func (c Code) Exiting() bool {
	return c&ExitingMask != 0
}
