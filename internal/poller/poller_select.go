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

//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// selectPoller is the worst-case-compatible fallback: readiness is
// tracked in fd sets and evaluated with select(2) on every Wait call.
// It supports only readability, writability and error, level-triggered.
func newPlatformPoller(defaultMask Mask) (Poller, error) {
	return &selectPoller{def: defaultMask, regs: map[int]Mask{}}, nil
}

type selectPoller struct {
	mu   sync.Mutex
	def  Mask
	regs map[int]Mask
}

func (p *selectPoller) resolveMask(mask Mask) (Mask, error) {
	if mask == 0 {
		mask = p.def
	}
	if mask == 0 {
		return 0, ErrNoMask
	}
	return mask, nil
}

func (p *selectPoller) Register(fd int, mask Mask) error {
	mask, err := p.resolveMask(mask)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.regs[fd] = mask
	return nil
}

func (p *selectPoller) Modify(fd int, mask Mask) error {
	return p.Register(fd, mask)
}

func (p *selectPoller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.regs, fd)
	return nil
}

func fdSet(s *unix.FdSet, fd int) {
	s.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(s *unix.FdSet, fd int) bool {
	return s.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}

func (p *selectPoller) Wait(timeoutMillis int) ([]Event, error) {
	p.mu.Lock()
	var rset, wset, eset unix.FdSet
	maxFd := 0
	for fd, mask := range p.regs {
		if mask&Read != 0 {
			fdSet(&rset, fd)
		}
		if mask&Write != 0 {
			fdSet(&wset, fd)
		}
		if mask&Err != 0 {
			fdSet(&eset, fd)
		}
		if fd > maxFd {
			maxFd = fd
		}
	}
	p.mu.Unlock()

	var tv *unix.Timeval
	if timeoutMillis >= 0 {
		t := unix.NsecToTimeval(int64(timeoutMillis) * 1e6)
		tv = &t
	}

	if _, err := unix.Select(maxFd+1, &rset, &wset, &eset, tv); err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Event
	for fd, mask := range p.regs {
		var ready Mask
		if mask&Read != 0 && fdIsSet(&rset, fd) {
			ready |= Read
		}
		if mask&Write != 0 && fdIsSet(&wset, fd) {
			ready |= Write
		}
		if mask&Err != 0 && fdIsSet(&eset, fd) {
			ready |= Err
		}
		if ready != 0 {
			out = append(out, Event{Fd: fd, Ready: ready})
		}
	}
	return out, nil
}

func (p *selectPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regs = map[int]Mask{}
	return nil
}
