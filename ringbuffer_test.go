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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmux/ringmux/internal/ctxreg"
)

func buildOne(t *testing.T, handler Handler) (*fakeManager, *RingBuffer) {
	t.Helper()
	f := newFakeManager()
	rb, err := NewBuilder(WithManager(f.open)).
		MustAdd(RawMap{Fd: 3, Kind: MapTypeRingBuf}, handler).
		Build()
	require.NoError(t, err)
	return f, rb
}

func TestConsumeDispatchesEveryPendingRecord(t *testing.T) {
	var got [][]byte
	f, rb := buildOne(t, func(record []byte) int32 {
		got = append(got, append([]byte(nil), record...))
		return 0
	})
	defer rb.Close()

	want := make([][]byte, 0, 8)
	for i := 0; i < 8; i++ {
		record := []byte(fmt.Sprintf("record-%d", i))
		want = append(want, record)
		f.publish(3, record)
	}

	require.NoError(t, rb.Consume())
	assert.Equal(t, want, got, "one invocation per record, exact bytes, in order")

	// Everything was drained, a second pass dispatches nothing.
	got = got[:0]
	require.NoError(t, rb.Consume())
	assert.Empty(t, got)
}

func TestConsumeRoutesToTheRightHandler(t *testing.T) {
	var aRecords, bRecords []string
	f := newFakeManager()
	rb, err := NewBuilder(WithManager(f.open)).
		MustAdd(RawMap{Fd: 3, Kind: MapTypeRingBuf}, func(r []byte) int32 {
			aRecords = append(aRecords, string(r))
			return 0
		}).
		MustAdd(RawMap{Fd: 4, Kind: MapTypeRingBuf}, func(r []byte) int32 {
			bRecords = append(bRecords, string(r))
			return 0
		}).
		Build()
	require.NoError(t, err)
	defer rb.Close()

	f.publish(4, []byte("for-b"))
	f.publish(3, []byte("for-a"))
	f.publish(3, []byte("for-a-too"))

	require.NoError(t, rb.Consume())
	assert.Equal(t, []string{"for-a", "for-a-too"}, aRecords)
	assert.Equal(t, []string{"for-b"}, bRecords)
}

func TestHandlerEarlyStopEndsThePassNotTheMultiplexer(t *testing.T) {
	var calls int
	f, rb := buildOne(t, func([]byte) int32 {
		calls++
		return 1
	})
	defer rb.Close()

	f.publish(3, []byte("one"))
	f.publish(3, []byte("two"))

	// Non-zero is a cooperative stop: the pass ends after one invocation
	// and the call still succeeds.
	require.NoError(t, rb.Consume())
	assert.Equal(t, 1, calls)

	// The next pass starts fresh on the remaining record.
	require.NoError(t, rb.Consume())
	assert.Equal(t, 2, calls)
}

func TestPollZeroTimeoutReturnsPromptly(t *testing.T) {
	var calls int
	_, rb := buildOne(t, func([]byte) int32 { calls++; return 0 })
	defer rb.Close()

	start := time.Now()
	require.NoError(t, rb.Poll(0))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Zero(t, calls)
}

func TestPollTimeoutElapsesWithoutRecords(t *testing.T) {
	var calls int
	_, rb := buildOne(t, func([]byte) int32 { calls++; return 0 })
	defer rb.Close()

	start := time.Now()
	require.NoError(t, rb.Poll(20*time.Millisecond))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
	assert.Zero(t, calls)
}

func TestPollForeverBlocksUntilPublication(t *testing.T) {
	records := make(chan string, 1)
	f, rb := buildOne(t, func(r []byte) int32 {
		records <- string(r)
		return 0
	})
	defer rb.Close()

	const delay = 50 * time.Millisecond
	go func() {
		time.Sleep(delay)
		f.publish(3, []byte("late"))
	}()

	start := time.Now()
	require.NoError(t, rb.Poll(Forever))
	assert.GreaterOrEqual(t, time.Since(start), delay-5*time.Millisecond,
		"poll must not return before the record was published")
	assert.Equal(t, "late", <-records)
}

func TestMultiplexerTransfersAcrossGoroutines(t *testing.T) {
	records := make(chan string, 1)
	f, rb := buildOne(t, func(r []byte) int32 {
		records <- string(r)
		return 0
	})

	// Built on this goroutine, driven and closed on another.
	done := make(chan error, 1)
	go func() {
		defer rb.Close()
		done <- rb.Poll(Forever)
	}()

	f.publish(3, []byte("handed off"))
	require.NoError(t, <-done)
	assert.Equal(t, "handed off", <-records)
}

func TestEpollFDStableAndDistinct(t *testing.T) {
	_, rb1 := buildOne(t, nopHandler)
	defer rb1.Close()
	_, rb2 := buildOne(t, nopHandler)
	defer rb2.Close()

	fd1 := rb1.EpollFD()
	assert.Equal(t, fd1, rb1.EpollFD(), "wait handle must be stable")
	assert.NotEqual(t, fd1, rb2.EpollFD(), "distinct instances get distinct wait handles")
}

func TestCloseReleasesBackendBeforeHandlerCells(t *testing.T) {
	base := ctxreg.Count()

	f := newFakeManager()
	f.onClose = func(f *fakeManager) {
		// Up to the moment the backend's release returns it may still
		// dispatch, so every handler context must still be resolvable.
		for _, ch := range f.chans {
			if ctxreg.Lookup(ch.ctx) == nil {
				panic("handler context reclaimed before the backend was released")
			}
		}
	}
	rb, err := NewBuilder(WithManager(f.open)).
		MustAdd(RawMap{Fd: 3, Kind: MapTypeRingBuf}, nopHandler).
		MustAdd(RawMap{Fd: 4, Kind: MapTypeRingBuf}, nopHandler).
		Build()
	require.NoError(t, err)

	rb.Close()
	assert.True(t, f.isClosed())
	assert.Equal(t, base, ctxreg.Count(), "all handler contexts reclaimed after release")
}

func TestCloseIsIdempotent(t *testing.T) {
	_, rb := buildOne(t, nopHandler)
	rb.Close()
	assert.NotPanics(t, rb.Close)
}
