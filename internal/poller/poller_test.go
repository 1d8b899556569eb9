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

package poller_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/prefork/internal/poller"
)

func TestPoller_RegisterAndWaitReadable(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	p, err := poller.New(poller.Read)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Register(int(r.Fd()), 0))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	events, err := p.Wait(1000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int(r.Fd()), events[0].Fd)
	assert.NotZero(t, events[0].Ready&poller.Read)
}

func TestPoller_RegisterWithoutMaskFails(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	p, err := poller.New(0)
	require.NoError(t, err)
	defer p.Close()

	err = p.Register(int(r.Fd()), 0)
	assert.ErrorIs(t, err, poller.ErrNoMask)
}

func TestPoller_UnregisterStopsNotifications(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	p, err := poller.New(poller.Read)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Register(int(r.Fd()), 0))
	require.NoError(t, p.Unregister(int(r.Fd())))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	events, err := p.Wait(50)
	require.NoError(t, err)
	assert.Empty(t, events)
}
