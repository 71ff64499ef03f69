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

import "strconv"

// Map is the channel-registry boundary: anything exposing a kernel map
// descriptor and its kind can be registered. The descriptor must stay valid
// at least until Build returns; afterwards the kernel keeps the underlying
// ring alive through the mappings held by the polling backend.
type Map interface {
	// FD returns the map's file descriptor.
	FD() int
	// Type returns the map's kind.
	Type() MapType
}

// MapType is the kind of a kernel map, numbered like the kernel's map type
// enumeration.
type MapType uint32

// The map kinds ringmux cares about or is commonly handed by mistake.
const (
	MapTypeUnspec         MapType = 0
	MapTypeHash           MapType = 1
	MapTypeArray          MapType = 2
	MapTypePerfEventArray MapType = 4
	MapTypeRingBuf        MapType = 27
)

func (t MapType) String() string {
	switch t {
	case MapTypeUnspec:
		return "Unspec"
	case MapTypeHash:
		return "Hash"
	case MapTypeArray:
		return "Array"
	case MapTypePerfEventArray:
		return "PerfEventArray"
	case MapTypeRingBuf:
		return "RingBuf"
	default:
		return "MapType(" + strconv.FormatUint(uint64(t), 10) + ")"
	}
}

// RawMap adapts a bare descriptor and kind to the Map interface, for
// callers whose map registry is not a Go object.
type RawMap struct {
	Fd   int
	Kind MapType
}

// FD implements Map.
func (m RawMap) FD() int { return m.Fd }

// Type implements Map.
func (m RawMap) Type() MapType { return m.Kind }
