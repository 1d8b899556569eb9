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

package main

import (
	"bytes"
	"io"
	"net"
	"os"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	"github.com/nabbar/prefork/worker"
)

// echoChild echoes each unit of work back to its sender, optionally
// uppercased, or denies everything when running in deny mode.
type echoChild struct {
	worker.Defaults

	log   liblog.FuncLog
	deny  bool
	upper bool
}

func (c *echoChild) Initialize() error {
	c.log().Entry(loglvl.DebugLevel, "worker started").FieldAdd("pid", os.Getpid()).Log()
	return nil
}

func (c *echoChild) AllowDeny(_ net.Conn, _ net.Addr) (bool, error) {
	return !c.deny, nil
}

func (c *echoChild) RequestDenied(conn net.Conn, _ net.Addr) error {
	_, err := conn.Write([]byte("NO\r\n"))
	return err
}

func (c *echoChild) ProcessRequest(conn net.Conn, _ net.Addr) error {
	buf := make([]byte, 64*1024)

	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	if n == 0 {
		return nil
	}

	payload := buf[:n]
	if c.upper {
		payload = bytes.ToUpper(payload)
	}

	_, err = conn.Write(payload)
	return err
}

func (c *echoChild) Shutdown() error {
	c.log().Entry(loglvl.DebugLevel, "worker stopping").FieldAdd("pid", os.Getpid()).Log()
	return nil
}

var _ worker.Hooks = (*echoChild)(nil)
