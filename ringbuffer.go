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
	"time"

	"github.com/ringmux/ringmux/internal/ctxreg"
	"github.com/ringmux/ringmux/pkg/errors"
	"github.com/ringmux/ringmux/pkg/logging"
	"github.com/ringmux/ringmux/pkg/manager"
)

// RingBuffer is a live multiplexer over a collection of ring-buffer
// channels. It owns one merged-polling backend and keeps every registered
// handler cell alive until Close.
//
// A RingBuffer may be handed off between goroutines but must be driven by
// one goroutine at a time; Poll and Consume take no internal lock. Handlers
// must not re-enter Poll or Consume on the same instance.
type RingBuffer struct {
	mgr    manager.Manager
	cells  []*handlerCell // retained purely to keep handler contexts alive
	logger logging.Logger
}

// Forever makes Poll block indefinitely until a record arrives.
const Forever time.Duration = -1

// Poll blocks for up to timeout, dispatching every record that becomes
// available across all channels to its handler on the calling goroutine. A
// timeout of Forever (or any negative duration) blocks indefinitely; zero
// drains what is pending and returns immediately. Timeouts are truncated to
// a signed 32-bit millisecond count; longer ones are a documented
// limitation of the underlying wait.
//
// Poll returns nil when records were dispatched, the timeout elapsed, or a
// handler stopped the pass early. Interrupted waits are retried by the next
// call, not surfaced.
func (rb *RingBuffer) Poll(timeout time.Duration) error {
	ms := int32(-1)
	if timeout >= 0 {
		ms = int32(timeout.Milliseconds())
	}
	_, err := errors.ParseRet(rb.mgr.Poll(ms))
	return err
}

// Consume greedily drains every channel without blocking, until all are
// empty or a handler stops the pass early. Dispatch and error semantics
// match Poll.
func (rb *RingBuffer) Consume() error {
	_, err := errors.ParseRet(rb.mgr.Consume())
	return err
}

// EpollFD returns a descriptor that becomes readable whenever any channel
// has pending records, so callers can fold this multiplexer into an
// external wait alongside other event sources instead of calling Poll with
// a timeout. The descriptor is stable for the lifetime of the RingBuffer.
func (rb *RingBuffer) EpollFD() int {
	return rb.mgr.WaitFD()
}

// Close tears the multiplexer down in two phases: the polling backend is
// released first and must fully quiesce, since it may dispatch on handler
// contexts up to the moment its release returns; only then are the handler
// cells reclaimed. Close is idempotent and the RingBuffer is unusable
// afterwards.
func (rb *RingBuffer) Close() {
	if rb.mgr == nil {
		return
	}
	rb.mgr.Close()
	rb.mgr = nil
	for _, cell := range rb.cells {
		ctxreg.Unregister(cell.ctx)
	}
	rb.cells = nil
	rb.logger.Debugf("ring-buffer multiplexer closed")
}
