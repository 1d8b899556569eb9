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

package worker_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libptc "github.com/nabbar/golib/network/protocol"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/internal/control"
	"github.com/nabbar/prefork/internal/listener"
	"github.com/nabbar/prefork/worker"
)

type echoHooks struct {
	worker.Defaults
}

func (echoHooks) ProcessRequest(conn net.Conn, _ net.Addr) error {
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	_, err = conn.Write(buf[:n])
	return err
}

func TestRuntime_TCPEchoThenMaxRequests(t *testing.T) {
	f, addr, err := listener.BindShared(listener.Config{Network: libptc.NetworkTCP, Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer f.Close()

	l, _, err := listener.FromInheritedFd(libptc.NetworkTCP, f.Fd())
	require.NoError(t, err)

	parent, childFile, err := control.NewSocketPair()
	require.NoError(t, err)
	defer parent.Close()

	child, err := control.NewChannelFromFd(childFile.Fd())
	require.NoError(t, err)

	rt := worker.New(echoHooks{}, child, l, nil, worker.Config{
		Protocol:    libptc.NetworkTCP,
		MaxRequests: 1,
	}, nil)

	runDone := make(chan error, 1)
	go func() {
		runDone <- rt.Run(context.Background())
	}()

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after reaching max requests")
	}
}

func TestRuntime_ReportsWaitingBusyExitingMax(t *testing.T) {
	f, addr, err := listener.BindShared(listener.Config{Network: libptc.NetworkTCP, Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer f.Close()

	l, _, err := listener.FromInheritedFd(libptc.NetworkTCP, f.Fd())
	require.NoError(t, err)

	parent, childFile, err := control.NewSocketPair()
	require.NoError(t, err)
	defer parent.Close()

	child, err := control.NewChannelFromFd(childFile.Fd())
	require.NoError(t, err)

	rt := worker.New(echoHooks{}, child, l, nil, worker.Config{
		Protocol:    libptc.NetworkTCP,
		MaxRequests: 1,
	}, nil)

	go rt.Run(context.Background())

	code, payload0, err := parent.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.Waiting, code)
	assert.Equal(t, "0", string(payload0))

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("x"))
	require.NoError(t, err)

	code, payload, err := parent.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.Busy, code)
	assert.Equal(t, "0", string(payload))

	code, payload, err = parent.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.Waiting, code)
	assert.Equal(t, "1", string(payload))

	code, _, err = parent.Recv()
	require.NoError(t, err)
	assert.Equal(t, event.ExitingMax, code)
}
