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

// Package manager declares the contract between ringmux and the
// merged-polling backend that actually speaks the ring-buffer protocol.
//
// ringmux ships a native Linux implementation, but any backend that
// satisfies Manager can be plugged in through ringmux.WithManager, which is
// also how the test suite substitutes an in-memory fake.
package manager

import "unsafe"

// SampleFn is the fixed sample trampoline the backend invokes once per
// drained record. ctx is the opaque context token supplied when the ring
// was registered, data points at the first byte of the record and size is
// its exact length in bytes. The pointed-to memory is only valid for the
// duration of the call. The backend must treat a non-zero return as a
// request to stop the current drain pass.
type SampleFn func(ctx uintptr, data unsafe.Pointer, size int) int32

// OpenFunc constructs a Manager around its first ring. It returns the live
// manager and 0, or a nil manager and a negative errno-style code on
// failure.
type OpenFunc func(fd int, fn SampleFn, ctx uintptr) (Manager, int)

// Manager is one merged-polling object aggregating any number of
// ring-buffer channels behind a single wait/drain interface.
//
// Drain operations report either the number of records dispatched or a
// negative errno-style code; they never surface a handler's non-zero status
// as a failure. A Manager is not safe for concurrent use, matching the
// multiplexer's single-thread-at-a-time contract.
type Manager interface {
	// Add registers one more ring-buffer channel with the manager.
	// Returns 0 on success or a negative errno-style code.
	Add(fd int, fn SampleFn, ctx uintptr) int

	// Poll blocks for up to timeoutMS milliseconds (-1 blocks
	// indefinitely) and drains whatever records become available.
	Poll(timeoutMS int32) int

	// Consume greedily drains every channel without blocking.
	Consume() int

	// WaitFD returns a descriptor that becomes readable when any channel
	// has pending records, for integration with external event loops.
	WaitFD() int

	// Close releases the manager. It must fully quiesce before
	// returning: after Close no SampleFn invocation may be in flight or
	// forthcoming. Close is idempotent.
	Close()
}
