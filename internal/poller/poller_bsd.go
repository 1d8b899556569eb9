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

//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package poller

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

func newPlatformPoller(defaultMask Mask) (Poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("poller: kqueue: %w", err)
	}
	return &kqueuePoller{kq: fd, def: defaultMask, regs: map[int]Mask{}}, nil
}

type kqueuePoller struct {
	mu   sync.Mutex
	kq   int
	def  Mask
	regs map[int]Mask
}

func (p *kqueuePoller) resolveMask(mask Mask) (Mask, error) {
	if mask == 0 {
		mask = p.def
	}
	if mask == 0 {
		return 0, ErrNoMask
	}
	return mask, nil
}

func kqueueChanges(fd int, mask Mask, flag uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if mask&Read != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flag})
	}
	if mask&Write != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flag})
	}
	return changes
}

func (p *kqueuePoller) Register(fd int, mask Mask) error {
	mask, err := p.resolveMask(mask)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	changes := kqueueChanges(fd, mask, unix.EV_ADD|unix.EV_ENABLE)
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return fmt.Errorf("poller: kevent add: %w", err)
	}
	p.regs[fd] = mask
	return nil
}

func (p *kqueuePoller) Modify(fd int, mask Mask) error {
	mask, err := p.resolveMask(mask)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.regs[fd]
	del := kqueueChanges(fd, old, unix.EV_DELETE)
	if len(del) > 0 {
		_, _ = unix.Kevent(p.kq, del, nil, nil)
	}
	add := kqueueChanges(fd, mask, unix.EV_ADD|unix.EV_ENABLE)
	if _, err := unix.Kevent(p.kq, add, nil, nil); err != nil {
		return fmt.Errorf("poller: kevent modify: %w", err)
	}
	p.regs[fd] = mask
	return nil
}

func (p *kqueuePoller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	mask := p.regs[fd]
	del := kqueueChanges(fd, mask, unix.EV_DELETE)
	if len(del) > 0 {
		if _, err := unix.Kevent(p.kq, del, nil, nil); err != nil && err != unix.ENOENT && err != unix.EBADF {
			return fmt.Errorf("poller: kevent delete: %w", err)
		}
	}
	delete(p.regs, fd)
	return nil
}

func (p *kqueuePoller) Wait(timeoutMillis int) ([]Event, error) {
	events := make([]unix.Kevent_t, 64)

	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMillis) * 1e6)
		ts = &t
	}

	n, err := unix.Kevent(p.kq, nil, events, ts)
	if err == unix.EINTR {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("poller: kevent wait: %w", err)
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		m := Read
		if events[i].Filter == unix.EVFILT_WRITE {
			m = Write
		}
		out = append(out, Event{Fd: int(events[i].Ident), Ready: m})
	}
	return out, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
