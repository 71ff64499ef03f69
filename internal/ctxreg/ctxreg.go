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

// Package ctxreg pins Go objects behind opaque uintptr tokens so they can
// be referenced from a foreign-style callback context that cannot carry Go
// pointers. A pinned object is reachable until it is unpinned, which must
// not happen while the backend holding its token may still dispatch on it.
package ctxreg

import "sync"

var (
	mu     sync.RWMutex
	pinned = make(map[uintptr]interface{})
	nextID uintptr = 1
)

// Register pins v and returns its token. Tokens are never zero and never
// reused while a registration is live.
func Register(v interface{}) uintptr {
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	pinned[id] = v
	return id
}

// Lookup resolves a token back to the pinned object, or nil for a token
// that was never issued or has been unregistered.
func Lookup(id uintptr) interface{} {
	mu.RLock()
	defer mu.RUnlock()
	return pinned[id]
}

// Unregister unpins the object behind id. Unknown tokens are ignored.
func Unregister(id uintptr) {
	mu.Lock()
	defer mu.Unlock()
	delete(pinned, id)
}

// Count reports the number of live registrations, for leak detection in
// tests.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(pinned)
}
