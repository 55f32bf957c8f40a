// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package idalloc implements a fixed-capacity, dense index allocator: a
// free-list over [0, capacity) that always reuses a released index before
// extending the high watermark.
package idalloc

import (
	"math"
	"sync"
)

// Index is a dense slot index.
type Index = uint32

// Invalid is returned by Alloc when the allocator is exhausted.
const Invalid Index = math.MaxUint32

// Allocator allocates dense indices in [0, capacity) with LIFO reuse of
// freed indices. Safe for concurrent use.
type Allocator struct {
	mu       sync.Mutex
	capacity Index
	unused   []Index
	next     Index
}

// New creates an allocator over [0, capacity).
func New(capacity uint32) *Allocator {
	return &Allocator{capacity: capacity}
}

// Alloc returns a fresh or reclaimed index, or Invalid if the allocator has
// reached capacity with nothing to reclaim.
func (a *Allocator) Alloc() Index {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.unused); n > 0 {
		idx := a.unused[n-1]
		a.unused = a.unused[:n-1]
		return idx
	}
	if a.next >= a.capacity {
		return Invalid
	}
	idx := a.next
	a.next++
	return idx
}

// Free returns idx to the free-list for reuse. A no-op for Invalid.
func (a *Allocator) Free(idx Index) {
	if idx == Invalid {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = append(a.unused, idx)
}

// Len returns the number of indices currently allocated (not on the
// free-list).
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.next) - len(a.unused)
}

// HighWaterMark returns the number of indices ever handed out, including
// ones since freed.
func (a *Allocator) HighWaterMark() Index {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Capacity returns the allocator's fixed capacity.
func (a *Allocator) Capacity() uint32 {
	return a.capacity
}

// Reset invalidates every previously allocated index and starts over. Use
// with care: any handle still referencing an old index becomes a dangling
// reference from the allocator's point of view.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = a.unused[:0]
	a.next = 0
}
