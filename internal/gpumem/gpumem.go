// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package gpumem implements the render graph's transient memory allocator
// (spec component D): a page suballocator over one or more device-only GPU
// heaps, ported from the original render-graph's
// rhi::TransientResourceAllocator (transient_resource.cpp/hpp).
//
// Every backing allocation is split into fixed-size pages; free and used
// spans are tracked as page ranges per backing, merged with their neighbors
// on free. Allocation is first-fit across existing backings, creating a new
// backing (and retrying, which must then succeed) on exhaustion.
package gpumem

import (
	"errors"
	"fmt"
)

// PageSize is the fixed page granularity transient allocations round up to,
// matching the original's TRANSIENT_RESOURCE_PAGE_SIZE.
const PageSize = 64 * 1024

// ErrRegionTooLarge is returned when a requested allocation cannot fit in a
// single backing allocation regardless of fragmentation.
var ErrRegionTooLarge = errors.New("gpumem: requested size exceeds a single backing allocation")

// Backing is the device-only heap handle a GPUAlloc function hands back.
// The allocator treats it opaquely; it passes it to FreeFunc on Close and
// reports it in each Region. Free finds the owning backing by the Region's
// internal backing index, not by this value.
type Backing any

// AllocFunc creates a new backing allocation of exactly size bytes,
// device-only memory.
type AllocFunc func(sizeInBytes uint64) (Backing, error)

// FreeFunc releases a backing allocation previously returned by AllocFunc.
type FreeFunc func(Backing)

// Region identifies a suballocated span within one backing allocation.
type Region struct {
	Backing      Backing
	OffsetBytes  uint64
	SizeBytes    uint64
	backingIndex int
}

type pageRange struct {
	startPage uint32
	pageCount uint32
}

type allocation struct {
	backing    Backing
	pageCount  uint32
	freeRanges []pageRange
	usedRanges []pageRange
}

// Allocator is the page suballocator itself.
type Allocator struct {
	alloc           AllocFunc
	free            FreeFunc
	pagesPerBacking uint32
	allocations     []allocation
}

// New creates an allocator whose backing allocations are each
// pagesPerBacking*PageSize bytes. It eagerly creates the first backing, just
// as the original constructor does.
func New(pagesPerBacking uint32, allocFn AllocFunc, freeFn FreeFunc) (*Allocator, error) {
	a := &Allocator{
		alloc:           allocFn,
		free:            freeFn,
		pagesPerBacking: pagesPerBacking,
	}
	if err := a.newBacking(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Allocator) newBacking() error {
	backing, err := a.alloc(uint64(a.pagesPerBacking) * PageSize)
	if err != nil {
		return err
	}
	a.allocations = append(a.allocations, allocation{
		backing:   backing,
		pageCount: a.pagesPerBacking,
		freeRanges: []pageRange{{
			startPage: 0,
			pageCount: a.pagesPerBacking,
		}},
	})
	return nil
}

// insertPageRange merges newRange into rangeList, coalescing with either
// adjacent neighbor (or both), matching the original InsertPageRange.
func insertPageRange(rangeList []pageRange, newRange pageRange) []pageRange {
	prev, next := -1, -1
	for i := range rangeList {
		r := rangeList[i]
		if r.startPage+r.pageCount == newRange.startPage {
			prev = i
		}
		if newRange.startPage+newRange.pageCount == r.startPage {
			next = i
		}
		if prev != -1 && next != -1 {
			break
		}
	}

	switch {
	case prev != -1 && next != -1:
		rangeList[prev].pageCount += newRange.pageCount + rangeList[next].pageCount
		rangeList = append(rangeList[:next], rangeList[next+1:]...)
	case prev != -1:
		rangeList[prev].pageCount += newRange.pageCount
	case next != -1:
		rangeList[next].startPage = newRange.startPage
		rangeList[next].pageCount += newRange.pageCount
	default:
		rangeList = append(rangeList, newRange)
	}
	return rangeList
}

// tryAllocatePageRange scans a's free ranges first-fit, shrinking the
// winning range from the front and recording the carved span in usedRanges.
func tryAllocatePageRange(a *allocation, pageCount uint32) (uint32, bool) {
	for i := range a.freeRanges {
		r := &a.freeRanges[i]
		if r.pageCount < pageCount {
			continue
		}
		startPage := r.startPage
		r.startPage += pageCount
		r.pageCount -= pageCount
		if r.pageCount == 0 {
			a.freeRanges = append(a.freeRanges[:i], a.freeRanges[i+1:]...)
		}
		a.usedRanges = insertPageRange(a.usedRanges, pageRange{startPage: startPage, pageCount: pageCount})
		return startPage, true
	}
	return 0, false
}

// AllocateMemoryRegion carves sizeInBytes, rounded up to whole pages, out of
// the first backing with a large-enough free page range. On failure to fit
// in any existing backing, a new backing is created and the allocation is
// retried, which must then succeed — mirroring the original's
// "create and retry, assert success" structure.
func (a *Allocator) AllocateMemoryRegion(sizeInBytes uint64) (Region, error) {
	if sizeInBytes == 0 {
		return Region{}, fmt.Errorf("gpumem: AllocateMemoryRegion called with size 0")
	}
	if sizeInBytes > uint64(a.pagesPerBacking)*PageSize {
		return Region{}, ErrRegionTooLarge
	}

	pageCount := uint32((sizeInBytes + PageSize - 1) / PageSize)

	for i := range a.allocations {
		if startPage, ok := tryAllocatePageRange(&a.allocations[i], pageCount); ok {
			return Region{
				Backing:      a.allocations[i].backing,
				OffsetBytes:  uint64(startPage) * PageSize,
				SizeBytes:    uint64(pageCount) * PageSize,
				backingIndex: i,
			}, nil
		}
	}

	if err := a.newBacking(); err != nil {
		return Region{}, err
	}
	last := len(a.allocations) - 1
	startPage, ok := tryAllocatePageRange(&a.allocations[last], pageCount)
	if !ok {
		return Region{}, fmt.Errorf("gpumem: fresh backing could not satisfy %d pages, pagesPerBacking=%d", pageCount, a.pagesPerBacking)
	}
	return Region{
		Backing:      a.allocations[last].backing,
		OffsetBytes:  uint64(startPage) * PageSize,
		SizeBytes:    uint64(pageCount) * PageSize,
		backingIndex: last,
	}, nil
}

// freePageRange locates the used range that fully contains rng, splits it
// into up to two remaining used ranges, and inserts the freed span into the
// free-range list. Mirrors the original FreePageRange, with the boundary
// check relaxed from strict-less-than to less-than-or-equal (see DESIGN.md
// open question 1: the original's assert rejects a range ending exactly at
// the last page, which the spec flags as a likely off-by-one).
func freePageRange(a *allocation, rng pageRange) error {
	if rng.pageCount == 0 {
		return fmt.Errorf("gpumem: freePageRange called with zero-length range")
	}
	if rng.startPage >= a.pageCount || rng.startPage+rng.pageCount > a.pageCount {
		return fmt.Errorf("gpumem: page range [%d,%d) out of bounds for backing of %d pages", rng.startPage, rng.startPage+rng.pageCount, a.pageCount)
	}

	startPage := rng.startPage
	endPage := startPage + rng.pageCount

	for i := range a.usedRanges {
		used := a.usedRanges[i]
		usedStart := used.startPage
		usedEnd := usedStart + used.pageCount

		if !(startPage >= usedStart && startPage < usedEnd && endPage > usedStart && endPage <= usedEnd) {
			continue
		}

		previous := pageRange{startPage: usedStart, pageCount: startPage - usedStart}
		next := pageRange{startPage: endPage, pageCount: usedEnd - endPage}

		switch {
		case previous.pageCount == 0 && next.pageCount == 0:
			a.usedRanges = append(a.usedRanges[:i], a.usedRanges[i+1:]...)
		case previous.pageCount == 0:
			a.usedRanges[i].startPage += rng.pageCount
			a.usedRanges[i].pageCount -= rng.pageCount
		case next.pageCount == 0:
			a.usedRanges[i].pageCount -= rng.pageCount
		default:
			a.usedRanges[i] = previous
			a.usedRanges = append(a.usedRanges, next)
		}

		a.freeRanges = insertPageRange(a.freeRanges, rng)
		return nil
	}

	return fmt.Errorf("gpumem: page range [%d,%d) does not belong to any tracked used range", startPage, endPage)
}

// FreeMemoryRegion returns a previously allocated region to its backing's
// free-page-range list.
func (a *Allocator) FreeMemoryRegion(r Region) error {
	if r.backingIndex < 0 || r.backingIndex >= len(a.allocations) {
		return fmt.Errorf("gpumem: region references an unknown backing")
	}
	return freePageRange(&a.allocations[r.backingIndex], pageRange{
		startPage: uint32(r.OffsetBytes / PageSize),
		pageCount: uint32(r.SizeBytes / PageSize),
	})
}

// Close releases every backing allocation. The allocator must not be used
// afterward.
func (a *Allocator) Close() {
	if a.free == nil {
		return
	}
	for i := range a.allocations {
		a.free(a.allocations[i].backing)
	}
	a.allocations = nil
}

// Stats reports per-backing page accounting, for tests and diagnostics.
type Stats struct {
	BackingCount int
	FreePages    uint32
	UsedPages    uint32
}

// Stats sums free and used page counts across every backing.
func (a *Allocator) Stats() Stats {
	s := Stats{BackingCount: len(a.allocations)}
	for i := range a.allocations {
		for _, r := range a.allocations[i].freeRanges {
			s.FreePages += r.pageCount
		}
		for _, r := range a.allocations[i].usedRanges {
			s.UsedPages += r.pageCount
		}
	}
	return s
}
