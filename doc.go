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

/*
Package ringmux multiplexes consumption of kernel ring-buffer channels.

A ring buffer is a single-producer/single-consumer channel through which a
kernel-resident producer publishes variable-length binary records. ringmux
registers any number of such channels, each with its own per-record handler,
merges them behind one polling handle, and dispatches every drained record
to the handler of its originating channel:

	rb, err := ringmux.NewBuilder().
		MustAdd(eventsMap, func(record []byte) int32 {
			// record is only valid for the duration of the call
			process(record)
			return 0
		}).
		Build()
	if err != nil {
		log.Fatal(err)
	}
	defer rb.Close()

	for {
		if err := rb.Poll(100 * time.Millisecond); err != nil {
			log.Fatal(err)
		}
	}

Handlers run synchronously on the calling goroutine. A handler returning a
non-zero status stops the current drain pass early; that is a cooperative
signal, not an error. Record contents are opaque to ringmux: their layout is
entirely the handler's business.

A multiplexer may be handed off to another goroutine, but it must not be
driven from two goroutines at once; Poll and Consume take no internal lock.
*/
package ringmux
