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

package control_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/control"
)

func TestSocketPair_RoundTrip(t *testing.T) {
	parent, childFile, err := control.NewSocketPair()
	require.NoError(t, err)
	defer parent.Close()

	child, err := control.NewChannelFromFd(childFile.Fd())
	require.NoError(t, err)
	defer child.Close()

	require.NoError(t, parent.Send(event.Waiting, []byte("hello")))

	code, payload, err := child.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.Waiting, code)
	assert.Equal(t, "hello", string(payload))
}

func TestSocketPair_EmptyPayload(t *testing.T) {
	parent, childFile, err := control.NewSocketPair()
	require.NoError(t, err)
	defer parent.Close()

	child, err := control.NewChannelFromFd(childFile.Fd())
	require.NoError(t, err)
	defer child.Close()

	require.NoError(t, child.Send(event.Busy, nil))

	code, payload, err := parent.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.Busy, code)
	assert.Empty(t, payload)
}

func TestChannel_CloseYieldsEOF(t *testing.T) {
	parent, childFile, err := control.NewSocketPair()
	require.NoError(t, err)

	child, err := control.NewChannelFromFd(childFile.Fd())
	require.NoError(t, err)

	require.NoError(t, parent.Close())

	_, _, err = child.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSend_RejectsOversizedPayload(t *testing.T) {
	parent, childFile, err := control.NewSocketPair()
	require.NoError(t, err)
	defer parent.Close()
	defer childFile.Close()

	err = parent.Send(event.Busy, make([]byte, control.MaxPayload+1))
	assert.Error(t, err)
}
