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

package supervisor_test

import (
	"testing"

	libptc "github.com/nabbar/golib/network/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/prefork/supervisor"
)

func TestIsChildProcess(t *testing.T) {
	assert.False(t, supervisor.IsChildProcess())

	t.Setenv(supervisor.EnvChildMarker, "1")
	assert.True(t, supervisor.IsChildProcess())
}

func TestReadChildSettings(t *testing.T) {
	t.Setenv(supervisor.EnvChildMarker, "1")
	t.Setenv(supervisor.EnvProtocol, "udp")
	t.Setenv(supervisor.EnvAddress, "127.0.0.1:10000")
	t.Setenv(supervisor.EnvBacklog, "5")
	t.Setenv(supervisor.EnvMaxRequests, "25")
	t.Setenv(supervisor.EnvReusePort, "0")

	s, err := supervisor.ReadChildSettings()
	require.NoError(t, err)

	assert.Equal(t, libptc.NetworkUDP, s.Protocol)
	assert.Equal(t, "127.0.0.1:10000", s.Address)
	assert.Equal(t, 5, s.Backlog)
	assert.Equal(t, 25, s.MaxRequests)
	assert.False(t, s.ReusePort)
}

func TestReadChildSettings_NotChild(t *testing.T) {
	_, err := supervisor.ReadChildSettings()
	require.Error(t, err)
}
