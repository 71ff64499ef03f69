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

// Package errors defines common errors for ringmux and the translation of
// raw backend return codes into Go errors.
package errors

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotRingBuffer occurs when a map of any kind other than ring-buffer is registered.
	ErrNotRingBuffer = errors.New("ringmux: must use a ring-buffer map")
	// ErrNoRingBuffers occurs when building a multiplexer with zero registrations.
	ErrNoRingBuffers = errors.New("ringmux: must add at least one ring-buffer map and handler before building")
	// ErrNilHandler occurs when registering a nil handler.
	ErrNilHandler = errors.New("ringmux: nil handler is not allowed")
	// ErrManagerUnavailable occurs when no polling backend exists for this platform
	// and none was supplied via ringmux.WithManager.
	ErrManagerUnavailable = errors.New("ringmux: no merged-polling backend available on this platform")
)

// SysError is a failure reported by the polling backend, carrying the raw
// errno-style code for diagnostics.
type SysError struct {
	Code int // positive errno value
}

// NewSysError builds a SysError from a backend return code, accepting
// either sign convention.
func NewSysError(code int) *SysError {
	if code < 0 {
		code = -code
	}
	return &SysError{Code: code}
}

func (e *SysError) Error() string {
	return fmt.Sprintf("ringmux: system failure, code %d: %s", e.Code, syscall.Errno(e.Code))
}

// Is reports whether target matches the errno carried by e, so callers can
// write errors.Is(err, unix.ENODEV) and the like.
func (e *SysError) Is(target error) bool {
	if errno, ok := target.(syscall.Errno); ok {
		return int(errno) == e.Code
	}
	return false
}

// ParseRet translates a raw drain return code into a record count and an
// error. Interrupted waits are recoverable by the next drain pass and are
// swallowed here rather than surfaced to the caller.
func ParseRet(ret int) (int, error) {
	if ret >= 0 {
		return ret, nil
	}
	if syscall.Errno(-ret) == syscall.EINTR {
		return 0, nil
	}
	return 0, NewSysError(ret)
}
