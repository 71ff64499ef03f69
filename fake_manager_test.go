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

package ringmux

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ringmux/ringmux/pkg/manager"
)

var fakeWaitFDs int32 = 1000

// fakeManager is an in-memory merged-polling backend honoring the manager
// contract: registration-order channels, greedy drain, early stop on a
// non-zero handler status, full quiescence at Close.
type fakeManager struct {
	mu     sync.Mutex
	cond   *sync.Cond
	chans  []*fakeChannel
	waitFD int
	closed bool

	// addCode, when non-zero, makes the next Add fail with that code.
	addCode int
	// onClose observes teardown while dispatch is still possible.
	onClose func(*fakeManager)
}

type fakeChannel struct {
	fd      int
	fn      manager.SampleFn
	ctx     uintptr
	pending [][]byte
}

func newFakeManager() *fakeManager {
	f := &fakeManager{waitFD: int(atomic.AddInt32(&fakeWaitFDs, 1))}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// open is the manager.OpenFunc of this fake.
func (f *fakeManager) open(fd int, fn manager.SampleFn, ctx uintptr) (manager.Manager, int) {
	if code := f.Add(fd, fn, ctx); code != 0 {
		return nil, code
	}
	return f, 0
}

func (f *fakeManager) Add(fd int, fn manager.SampleFn, ctx uintptr) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addCode != 0 {
		return f.addCode
	}
	f.chans = append(f.chans, &fakeChannel{fd: fd, fn: fn, ctx: ctx})
	return 0
}

// publish queues a record on the channel registered for fd and wakes any
// blocked poller.
func (f *fakeManager) publish(fd int, record []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.chans {
		if ch.fd == fd {
			ch.pending = append(ch.pending, append([]byte(nil), record...))
			f.cond.Broadcast()
			return
		}
	}
	panic("publish on unregistered fd")
}

func (f *fakeManager) hasPendingLocked() bool {
	for _, ch := range f.chans {
		if len(ch.pending) > 0 {
			return true
		}
	}
	return false
}

// drainLocked dispatches every pending record across all channels in
// registration order until empty or a handler stops the pass.
func (f *fakeManager) drainLocked() int {
	var cnt int
	for _, ch := range f.chans {
		for len(ch.pending) > 0 {
			record := ch.pending[0]
			ch.pending = ch.pending[1:]
			var data unsafe.Pointer
			if len(record) > 0 {
				data = unsafe.Pointer(&record[0])
			}
			rc := ch.fn(ch.ctx, data, len(record))
			cnt++
			if rc != 0 {
				return cnt
			}
		}
	}
	return cnt
}

func (f *fakeManager) Poll(timeoutMS int32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasPendingLocked() && timeoutMS != 0 {
		if timeoutMS < 0 {
			for !f.hasPendingLocked() && !f.closed {
				f.cond.Wait()
			}
		} else {
			d := time.Duration(timeoutMS) * time.Millisecond
			deadline := time.Now().Add(d)
			wakeup := time.AfterFunc(d, f.cond.Broadcast)
			for !f.hasPendingLocked() && !f.closed && time.Now().Before(deadline) {
				f.cond.Wait()
			}
			wakeup.Stop()
		}
	}
	return f.drainLocked()
}

func (f *fakeManager) Consume() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drainLocked()
}

func (f *fakeManager) WaitFD() int {
	return f.waitFD
}

func (f *fakeManager) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.onClose != nil {
		f.onClose(f)
	}
	f.closed = true
	f.cond.Broadcast()
}

func (f *fakeManager) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
