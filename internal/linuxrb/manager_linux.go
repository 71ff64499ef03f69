// Copyright (c) 2024 The Ringmux Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

// Package linuxrb is the native Linux merged-polling backend. It mmaps each
// kernel ring-buffer map and aggregates readiness behind one epoll
// instance, implementing the manager contract without cgo.
package linuxrb

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ringmux/ringmux/pkg/logging"
	"github.com/ringmux/ringmux/pkg/manager"
)

// ringManager multiplexes any number of kernel ring buffers behind a single
// epoll descriptor. Not safe for concurrent use.
type ringManager struct {
	epfd   int
	rings  []*ring
	events []unix.EpollEvent
	closed bool
}

// OpenManager creates a manager around its first ring-buffer map. It
// returns a negative errno-style code on failure, in which case no
// resources remain allocated.
func OpenManager(fd int, fn manager.SampleFn, ctx uintptr) (manager.Manager, int) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errCode(err)
	}
	m := &ringManager{epfd: epfd}
	if code := m.Add(fd, fn, ctx); code != 0 {
		_ = unix.Close(epfd)
		return nil, code
	}
	return m, 0
}

// Add mmaps one more ring-buffer map and registers it with the epoll
// instance. The ring index is stashed in the epoll event payload so that
// readiness can be routed back to the right ring.
func (m *ringManager) Add(fd int, fn manager.SampleFn, ctx uintptr) int {
	info, err := mapInfoByFD(fd)
	if err != nil {
		return errCode(err)
	}
	if info.mapType != mapTypeRingBuf {
		logging.Warnf("fd %d names a map of type %d, not a ring buffer", fd, info.mapType)
		return -int(unix.EINVAL)
	}
	size := int(info.maxEntries)
	pageSize := unix.Getpagesize()

	consMmap, err := unix.Mmap(fd, 0, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errCode(err)
	}
	// The kernel maps the data area twice back to back, so records that
	// wrap the ring stay contiguous in our address space.
	prodMmap, err := unix.Mmap(fd, int64(pageSize), pageSize+2*size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Munmap(consMmap)
		return errCode(err)
	}

	r := &ring{
		fn:       fn,
		ctx:      ctx,
		mask:     uint64(size - 1),
		consPos:  (*uint64)(unsafe.Pointer(&consMmap[0])),
		prodPos:  (*uint64)(unsafe.Pointer(&prodMmap[0])),
		data:     prodMmap[pageSize:],
		consMmap: consMmap,
		prodMmap: prodMmap,
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(len(m.rings))}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		_ = unix.Munmap(prodMmap)
		_ = unix.Munmap(consMmap)
		return errCode(err)
	}

	m.rings = append(m.rings, r)
	m.events = append(m.events, unix.EpollEvent{})
	logging.Debugf("registered ring buffer fd=%d size=%d with epoll fd=%d", fd, size, m.epfd)
	return 0
}

// Poll waits for up to timeoutMS milliseconds (-1 blocks indefinitely) and
// drains the rings that reported readiness.
func (m *ringManager) Poll(timeoutMS int32) int {
	n, err := unix.EpollWait(m.epfd, m.events, int(timeoutMS))
	if err != nil {
		return errCode(err)
	}
	var total int
	for i := 0; i < n; i++ {
		r := m.rings[int(m.events[i].Fd)]
		cnt, stopped := r.drain()
		total += cnt
		if stopped {
			break
		}
	}
	return total
}

// Consume greedily drains every ring without waiting.
func (m *ringManager) Consume() int {
	var total int
	for _, r := range m.rings {
		cnt, stopped := r.drain()
		total += cnt
		if stopped {
			break
		}
	}
	return total
}

// WaitFD exposes the epoll descriptor for external event-loop integration.
func (m *ringManager) WaitFD() int {
	return m.epfd
}

// Close unmaps every ring and closes the epoll descriptor. No sample
// dispatch can be in flight once it returns since the manager is
// single-threaded by contract.
func (m *ringManager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, r := range m.rings {
		if err := unix.Munmap(r.prodMmap); err != nil {
			logging.Errorf("failed to munmap producer pages: %v", err)
		}
		if err := unix.Munmap(r.consMmap); err != nil {
			logging.Errorf("failed to munmap consumer page: %v", err)
		}
	}
	m.rings = nil
	if err := unix.Close(m.epfd); err != nil {
		logging.Errorf("failed to close epoll fd %d: %v", m.epfd, err)
	}
}

func errCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int(errno)
	}
	return -int(unix.EINVAL)
}
