// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package gpumem

import "testing"

type fakeBacking struct{ id int }

func newTestAllocator(t *testing.T, pagesPerBacking uint32) *Allocator {
	t.Helper()
	next := 0
	a, err := New(pagesPerBacking, func(uint64) (Backing, error) {
		next++
		return fakeBacking{id: next}, nil
	}, func(Backing) {})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestAllocateWithinSingleBacking(t *testing.T) {
	a := newTestAllocator(t, 4)
	r, err := a.AllocateMemoryRegion(PageSize * 4)
	if err != nil {
		t.Fatalf("AllocateMemoryRegion() error = %v", err)
	}
	if a.Stats().BackingCount != 1 {
		t.Fatalf("BackingCount = %d, want 1 (size == pagesPerBacking*pageSize must fit one backing)", a.Stats().BackingCount)
	}
	if r.SizeBytes != PageSize*4 {
		t.Fatalf("SizeBytes = %d, want %d", r.SizeBytes, PageSize*4)
	}
}

func TestAllocateOneByteOverBackingSizeCreatesNewBacking(t *testing.T) {
	a := newTestAllocator(t, 4)
	if _, err := a.AllocateMemoryRegion(PageSize * 4); err != nil {
		t.Fatalf("AllocateMemoryRegion() error = %v", err)
	}
	// The first backing is now full; one more byte needs a second backing.
	_, err := a.AllocateMemoryRegion(1)
	if err != nil {
		t.Fatalf("AllocateMemoryRegion() error = %v", err)
	}
	if a.Stats().BackingCount != 2 {
		t.Fatalf("BackingCount = %d, want 2", a.Stats().BackingCount)
	}
}

func TestAllocateLargerThanBackingCapacityIsRejected(t *testing.T) {
	a := newTestAllocator(t, 4)
	_, err := a.AllocateMemoryRegion(PageSize*4 + PageSize)
	if err == nil {
		t.Fatal("expected an error for a region this allocator cannot ever fit")
	}
}

func TestNoIntersectionBetweenSimultaneousAllocations(t *testing.T) {
	a := newTestAllocator(t, 8)
	r1, _ := a.AllocateMemoryRegion(PageSize * 3)
	r2, _ := a.AllocateMemoryRegion(PageSize * 2)

	r1End := r1.OffsetBytes + r1.SizeBytes
	r2End := r2.OffsetBytes + r2.SizeBytes
	overlap := r1.OffsetBytes < r2End && r2.OffsetBytes < r1End
	if overlap {
		t.Fatalf("regions overlap: r1=[%d,%d) r2=[%d,%d)", r1.OffsetBytes, r1End, r2.OffsetBytes, r2End)
	}
}

func TestFreeRestoresFullCapacity(t *testing.T) {
	a := newTestAllocator(t, 8)
	r, err := a.AllocateMemoryRegion(PageSize * 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.FreeMemoryRegion(r); err != nil {
		t.Fatalf("FreeMemoryRegion() error = %v", err)
	}

	stats := a.Stats()
	if stats.FreePages != 8 || stats.UsedPages != 0 {
		t.Fatalf("after freeing the only allocation: free=%d used=%d, want free=8 used=0", stats.FreePages, stats.UsedPages)
	}
}

func TestFreeSumEqualsBackingMinusRemainingUsed(t *testing.T) {
	a := newTestAllocator(t, 10)
	r1, _ := a.AllocateMemoryRegion(PageSize * 3)
	_, _ = a.AllocateMemoryRegion(PageSize * 4) // stays allocated

	if err := a.FreeMemoryRegion(r1); err != nil {
		t.Fatal(err)
	}

	stats := a.Stats()
	if stats.FreePages+stats.UsedPages != 10 {
		t.Fatalf("free+used = %d, want 10", stats.FreePages+stats.UsedPages)
	}
	if stats.UsedPages != 4 {
		t.Fatalf("UsedPages = %d, want 4", stats.UsedPages)
	}
}

func TestFreeRangeEndingAtLastPageIsAccepted(t *testing.T) {
	// Regression test for DESIGN.md open question 1: a region ending exactly
	// at the backing's last page must be freeable, not rejected as the
	// original's strict "< pageCount" assert would have done.
	a := newTestAllocator(t, 4)
	r, err := a.AllocateMemoryRegion(PageSize * 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.FreeMemoryRegion(r); err != nil {
		t.Fatalf("freeing a range flush with the backing's end: %v", err)
	}
}

func TestFreeCoalescesWithBothNeighbors(t *testing.T) {
	a := newTestAllocator(t, 6)
	r1, _ := a.AllocateMemoryRegion(PageSize * 2) // pages [0,2)
	r2, _ := a.AllocateMemoryRegion(PageSize * 2) // pages [2,4)
	r3, _ := a.AllocateMemoryRegion(PageSize * 2) // pages [4,6)

	if err := a.FreeMemoryRegion(r1); err != nil {
		t.Fatal(err)
	}
	if err := a.FreeMemoryRegion(r3); err != nil {
		t.Fatal(err)
	}
	if err := a.FreeMemoryRegion(r2); err != nil {
		t.Fatal(err)
	}

	stats := a.Stats()
	if stats.FreePages != 6 || stats.UsedPages != 0 {
		t.Fatalf("after freeing all three in non-adjacent order: free=%d used=%d, want 6/0", stats.FreePages, stats.UsedPages)
	}
	if len(a.allocations[0].freeRanges) != 1 {
		t.Fatalf("free ranges did not coalesce into one span: %v", a.allocations[0].freeRanges)
	}
}

func TestFreeUnknownRegionErrors(t *testing.T) {
	a := newTestAllocator(t, 4)
	bogus := Region{Backing: fakeBacking{id: 999}, OffsetBytes: 0, SizeBytes: PageSize, backingIndex: 0}
	a.AllocateMemoryRegion(PageSize) // pages [0,1) now used
	bogus.OffsetBytes = PageSize * 2
	if err := a.FreeMemoryRegion(bogus); err == nil {
		t.Fatal("expected an error freeing a range outside any used range")
	}
}
