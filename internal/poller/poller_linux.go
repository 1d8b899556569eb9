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

//go:build linux

package poller

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

func newPlatformPoller(defaultMask Mask) (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: fd, def: defaultMask}, nil
}

type epollPoller struct {
	mu   sync.Mutex
	epfd int
	def  Mask
}

func toEpollEvents(m Mask) uint32 {
	var e uint32
	if m&Read != 0 {
		e |= unix.EPOLLIN
	}
	if m&Write != 0 {
		e |= unix.EPOLLOUT
	}
	if m&Err != 0 {
		e |= unix.EPOLLERR
	}
	return e
}

func fromEpollEvents(e uint32) Mask {
	var m Mask
	if e&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		m |= Read
	}
	if e&unix.EPOLLOUT != 0 {
		m |= Write
	}
	if e&unix.EPOLLERR != 0 {
		m |= Err
	}
	return m
}

func (p *epollPoller) resolveMask(mask Mask) (Mask, error) {
	if mask == 0 {
		mask = p.def
	}
	if mask == 0 {
		return 0, ErrNoMask
	}
	return mask, nil
}

func (p *epollPoller) Register(fd int, mask Mask) error {
	mask, err := p.resolveMask(mask)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Modify(fd int, mask Mask) error {
	mask, err := p.resolveMask(mask)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		// never registered, or already gone: unregister is idempotent
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeoutMillis int) ([]Event, error) {
	raw := make([]unix.EpollEvent, 64)

	n, err := unix.EpollWait(p.epfd, raw, timeoutMillis)
	if err == unix.EINTR {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_wait: %w", err)
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Event{
			Fd:    int(raw[i].Fd),
			Ready: fromEpollEvents(raw[i].Events),
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
