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

package listener_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/prefork/internal/listener"
	libptc "github.com/nabbar/golib/network/protocol"
)

func TestBindShared_TCP_AssignsKernelPort(t *testing.T) {
	f, addr, err := listener.BindShared(listener.Config{
		Network: libptc.NetworkTCP,
		Address: "127.0.0.1:0",
	})
	require.NoError(t, err)
	defer f.Close()

	assert.NotEmpty(t, addr.String())
	assert.NotContains(t, addr.String(), ":0")
}

func TestFromInheritedFd_TCP(t *testing.T) {
	f, _, err := listener.BindShared(listener.Config{
		Network: libptc.NetworkTCP,
		Address: "127.0.0.1:0",
	})
	require.NoError(t, err)
	defer f.Close()

	l, pc, err := listener.FromInheritedFd(libptc.NetworkTCP, f.Fd())
	require.NoError(t, err)
	require.Nil(t, pc)
	require.NotNil(t, l)
	defer l.Close()

	bound, ok := listener.BoundAddrPort(l, nil)
	require.True(t, ok)
	assert.NotEmpty(t, bound)
}

func TestReusePortSupported_MatchesPlatform(t *testing.T) {
	// Linux/BSD/Darwin all define SO_REUSEPORT; every other GOOS takes
	// the unsupported build-tag branch.
	switch runtime.GOOS {
	case "linux", "darwin", "dragonfly", "freebsd", "netbsd", "openbsd":
		assert.True(t, listener.ReusePortSupported())
	default:
		assert.False(t, listener.ReusePortSupported())
	}
}
