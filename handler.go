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
	"fmt"
	"unsafe"

	"github.com/ringmux/ringmux/internal/ctxreg"
	"github.com/ringmux/ringmux/pkg/logging"
)

// Handler is the per-channel logic invoked once per drained record. The
// record slice is a view over the ring's memory and is only valid for the
// duration of the call; a handler that needs the bytes afterwards must copy
// them out. Returning non-zero stops the current drain pass early.
//
// A handler is never invoked concurrently with itself. Panicking inside a
// handler while it is dispatched by the polling backend is unsupported:
// there is no recovery across that boundary.
type Handler func(record []byte) int32

// handlerCell pins one registered handler. The polling backend refers to a
// cell only through the opaque context token issued at registration, so a
// cell must stay registered until the backend that may dispatch on it has
// been released.
type handlerCell struct {
	fn  Handler
	ctx uintptr // token issued by ctxreg, 0 until Build registers the cell
}

func newHandlerCell(fn Handler) *handlerCell {
	return &handlerCell{fn: fn}
}

// String renders the cell by identity only; closures are not inspectable.
func (c *handlerCell) String() string {
	return fmt.Sprintf("handlerCell(%p)", c)
}

// dispatchSample is the single trampoline shared by every registration. The
// backend hands back the context token from registration time together with
// a pointer to the record's bytes; the trampoline resolves the token to its
// cell, builds a no-copy view over exactly size bytes and relays the
// handler's status unchanged.
func dispatchSample(ctx uintptr, data unsafe.Pointer, size int) int32 {
	cell, ok := ctxreg.Lookup(ctx).(*handlerCell)
	if !ok {
		// A dispatch after teardown would be a backend contract
		// violation; drop the record rather than crash the drain pass.
		logging.Errorf("sample dispatched on unknown context token %#x", ctx)
		return 0
	}
	var record []byte
	if size > 0 {
		record = unsafe.Slice((*byte)(data), size)
	}
	return cell.fn(record)
}
