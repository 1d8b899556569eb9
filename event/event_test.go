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

package event_test

import (
	"testing"

	"github.com/nabbar/prefork/event"
	"github.com/stretchr/testify/assert"
)

func TestCode_Valid(t *testing.T) {
	for _, c := range []event.Code{event.Waiting, event.Busy, event.ExitingError, event.ExitingMax, event.Close} {
		assert.True(t, c.Valid(), c.String())
	}
	assert.False(t, event.Code(0).Valid())
	assert.False(t, event.Code(200).Valid())
}

func TestCode_Exiting(t *testing.T) {
	assert.True(t, event.ExitingError.Exiting())
	assert.True(t, event.ExitingMax.Exiting())
	assert.False(t, event.Waiting.Exiting())
	assert.False(t, event.Busy.Exiting())
	assert.False(t, event.Close.Exiting())
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "waiting", event.Waiting.String())
	assert.Contains(t, event.Code(99).String(), "unknown")
}
