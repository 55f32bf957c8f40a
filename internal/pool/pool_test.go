// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package pool

import (
	"testing"

	"github.com/gogpu/rendergraph/internal/handle"
)

type bufferMarker struct{}

func (bufferMarker) Salt() uint8 { return 0x22 }

type hot struct{ rhiHandle int }
type cold struct{ sizeBytes int }

func TestStoreThenGet(t *testing.T) {
	p := New[hot, cold, bufferMarker](4)
	h, ok := p.Store(hot{rhiHandle: 1}, cold{sizeBytes: 1024})
	if !ok {
		t.Fatal("Store() failed at capacity 4")
	}

	gotHot, ok := p.GetHot(h)
	if !ok || gotHot.rhiHandle != 1 {
		t.Fatalf("GetHot() = %+v, %v, want {1}, true", gotHot, ok)
	}
	gotCold, ok := p.GetCold(h)
	if !ok || gotCold.sizeBytes != 1024 {
		t.Fatalf("GetCold() = %+v, %v, want {1024}, true", gotCold, ok)
	}
}

func TestRemoveBumpsGenerationAndInvalidatesStaleHandle(t *testing.T) {
	p := New[hot, cold, bufferMarker](4)
	h, _ := p.Store(hot{1}, cold{1})

	if !p.Remove(h) {
		t.Fatal("Remove() of live handle failed")
	}
	if p.Contains(h) {
		t.Fatal("Contains() true after Remove()")
	}

	h2, _ := p.Store(hot{2}, cold{2})
	if h2.Generation() == h.Generation() {
		t.Fatal("reused slot did not bump generation")
	}
	if p.Contains(h) {
		t.Fatal("stale handle resolved against reused slot")
	}
	if !p.Contains(h2) {
		t.Fatal("fresh handle after reuse does not resolve")
	}
}

func TestPoolAtCapacityReturnsSentinelWithoutCorruption(t *testing.T) {
	p := New[hot, cold, bufferMarker](2)
	h1, ok1 := p.Store(hot{1}, cold{1})
	h2, ok2 := p.Store(hot{2}, cold{2})
	_, ok3 := p.Store(hot{3}, cold{3})

	if !ok1 || !ok2 {
		t.Fatal("first two Store() calls should succeed at capacity 2")
	}
	if ok3 {
		t.Fatal("third Store() at capacity 2 should fail")
	}

	gotHot1, _ := p.GetHot(h1)
	gotHot2, _ := p.GetHot(h2)
	if gotHot1.rhiHandle != 1 || gotHot2.rhiHandle != 2 {
		t.Fatal("existing entries were corrupted by a failed Store() at capacity")
	}
}

func TestMutateHotAndCold(t *testing.T) {
	p := New[hot, cold, bufferMarker](4)
	h, _ := p.Store(hot{1}, cold{1})

	p.MutateHot(h, func(v *hot) { v.rhiHandle = 42 })
	p.MutateCold(h, func(v *cold) { v.sizeBytes = 99 })

	gotHot, _ := p.GetHot(h)
	gotCold, _ := p.GetCold(h)
	if gotHot.rhiHandle != 42 || gotCold.sizeBytes != 99 {
		t.Fatalf("mutations did not stick: hot=%+v cold=%+v", gotHot, gotCold)
	}
}

func TestForEachVisitsOnlyLiveEntries(t *testing.T) {
	p := New[hot, cold, bufferMarker](4)
	h1, _ := p.Store(hot{1}, cold{1})
	_, _ = p.Store(hot{2}, cold{2})
	p.Remove(h1)

	count := 0
	p.ForEach(func(h handle.Handle[bufferMarker], hv *hot, cv *cold) bool {
		count++
		if hv.rhiHandle != 2 {
			t.Errorf("ForEach visited a removed entry: %+v", hv)
		}
		return true
	})
	if count != 1 {
		t.Fatalf("ForEach visited %d entries, want 1", count)
	}
}
