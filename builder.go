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
	"github.com/ringmux/ringmux/internal/ctxreg"
	"github.com/ringmux/ringmux/pkg/errors"
	"github.com/ringmux/ringmux/pkg/manager"
)

type registration struct {
	fd   int
	cell *handlerCell
}

// Builder accumulates (channel, handler) pairs and turns them into one live
// RingBuffer. Registration is pure bookkeeping; no kernel or backend
// resource is touched before Build.
//
// A Builder is not safe for concurrent use and is spent once Build has been
// called, successfully or not.
type Builder struct {
	regs []registration
	opts *Options
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{opts: initOptions(opts...)}
}

// Add registers a ring-buffer map and its per-record handler, in
// registration order. The map must be of the ring-buffer kind; otherwise
// Add fails and the builder is left unchanged. The returned builder is the
// receiver, for chained registration.
func (b *Builder) Add(m Map, handler Handler) (*Builder, error) {
	if m == nil || m.Type() != MapTypeRingBuf {
		return nil, errors.ErrNotRingBuffer
	}
	if handler == nil {
		return nil, errors.ErrNilHandler
	}
	b.regs = append(b.regs, registration{fd: m.FD(), cell: newHandlerCell(handler)})
	return b, nil
}

// MustAdd is like Add but panics on invalid input, for chained registration
// of maps that are statically known to be ring buffers.
func (b *Builder) MustAdd(m Map, handler Handler) *Builder {
	if _, err := b.Add(m, handler); err != nil {
		panic(err)
	}
	return b
}

// Build finalizes the builder into a live RingBuffer owning one
// merged-polling backend and every registered handler. At least one
// registration is required. On failure no backend survives and every
// handler context registered along the way is reclaimed, so repeated failed
// builds do not leak.
func (b *Builder) Build() (*RingBuffer, error) {
	regs := b.regs
	b.regs = nil // the builder is spent either way
	if len(regs) == 0 {
		return nil, errors.ErrNoRingBuffers
	}
	if b.opts.OpenManager == nil {
		return nil, errors.ErrManagerUnavailable
	}

	cells := make([]*handlerCell, 0, len(regs))
	unwind := func(mgr manager.Manager) {
		if mgr != nil {
			mgr.Close()
		}
		for _, cell := range cells {
			ctxreg.Unregister(cell.ctx)
		}
	}

	var mgr manager.Manager
	for _, reg := range regs {
		cell := reg.cell
		cell.ctx = ctxreg.Register(cell)
		cells = append(cells, cell)

		if mgr == nil {
			m, code := b.opts.OpenManager(reg.fd, dispatchSample, cell.ctx)
			if code != 0 || m == nil {
				unwind(m)
				return nil, errors.NewSysError(code)
			}
			mgr = m
		} else if code := mgr.Add(reg.fd, dispatchSample, cell.ctx); code != 0 {
			unwind(mgr)
			return nil, errors.NewSysError(code)
		}
	}

	b.opts.Logger.Debugf("built ring-buffer multiplexer over %d channel(s), wait fd %d",
		len(cells), mgr.WaitFD())
	return &RingBuffer{mgr: mgr, cells: cells, logger: b.opts.Logger}, nil
}
