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
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// BPF_OBJ_GET_INFO_BY_FD
	cmdObjGetInfoByFD = 15
	// BPF_MAP_TYPE_RINGBUF
	mapTypeRingBuf = 27
)

// mapInfo is the leading portion of the kernel's bpf_map_info. The kernel
// copies out at most info_len bytes, so trailing fields newer kernels know
// about can be omitted.
type mapInfo struct {
	mapType    uint32
	id         uint32
	keySize    uint32
	valueSize  uint32
	maxEntries uint32
	mapFlags   uint32
	name       [16]byte
}

type objGetInfoByFDAttr struct {
	bpfFD   uint32
	infoLen uint32
	info    uint64
}

// mapInfoByFD queries the kernel for the map behind fd. For ring-buffer
// maps, maxEntries is the size of the data area in bytes.
func mapInfoByFD(fd int) (mapInfo, error) {
	var info mapInfo
	attr := objGetInfoByFDAttr{
		bpfFD:   uint32(fd),
		infoLen: uint32(unsafe.Sizeof(info)),
		info:    uint64(uintptr(unsafe.Pointer(&info))),
	}
	_, _, errno := unix.Syscall(unix.SYS_BPF, cmdObjGetInfoByFD,
		uintptr(unsafe.Pointer(&attr)), unsafe.Sizeof(attr))
	if errno != 0 {
		return mapInfo{}, errno
	}
	return info, nil
}
