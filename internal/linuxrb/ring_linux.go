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

package linuxrb

import (
	"sync/atomic"
	"unsafe"

	"github.com/ringmux/ringmux/pkg/manager"
)

// Kernel ring-buffer record ABI: every record is preceded by an 8-byte
// header whose first word carries the record length plus two flag bits.
// The producer strides in 8-byte steps, so consumer positions advance by
// the rounded-up length plus the header.
const (
	busyBit    = uint32(1) << 31
	discardBit = uint32(1) << 30
	headerSize = 8
)

func roundupLen(size uint32) uint64 {
	return uint64((size+7)/8*8) + headerSize
}

// ring is the consumer view of one kernel ring buffer. consPos and prodPos
// point into the consumer and producer metadata pages; data covers the
// double-mapped record area, so any record window starting below mask+1 is
// addressable contiguously.
type ring struct {
	fn   manager.SampleFn
	ctx  uintptr
	mask uint64

	consPos *uint64
	prodPos *uint64
	data    []byte

	// retained for munmap at teardown
	consMmap []byte
	prodMmap []byte
}

// drain consumes every committed record currently in the ring, dispatching
// each through the sample trampoline. It returns the number of records
// dispatched and whether a handler requested that the whole drain pass
// stop. The record that triggered the stop is committed as consumed.
func (r *ring) drain() (cnt int, stopped bool) {
	cons := atomic.LoadUint64(r.consPos)
	for {
		gotNew := false
		prod := atomic.LoadUint64(r.prodPos)
		for cons < prod {
			off := cons & r.mask
			hdr := atomic.LoadUint32((*uint32)(unsafe.Pointer(&r.data[off])))
			if hdr&busyBit != 0 {
				// The producer has reserved but not yet committed
				// this record; everything beyond it is unreadable.
				return cnt, false
			}
			gotNew = true
			size := hdr &^ (busyBit | discardBit)
			cons += roundupLen(size)

			if hdr&discardBit == 0 {
				rc := r.fn(r.ctx, unsafe.Pointer(&r.data[off+headerSize]), int(size))
				cnt++
				if rc != 0 {
					atomic.StoreUint64(r.consPos, cons)
					return cnt, true
				}
			}
			atomic.StoreUint64(r.consPos, cons)
		}
		if !gotNew {
			return cnt, false
		}
	}
}
