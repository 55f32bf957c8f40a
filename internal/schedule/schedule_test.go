// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package schedule

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunBatchesRunsEveryBatch(t *testing.T) {
	p := New(4)
	defer p.Stop()

	var count atomic.Int32
	err := p.RunBatches(10, func(batchIdx int) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("RunBatches() error = %v", err)
	}
	if count.Load() != 10 {
		t.Fatalf("ran %d batches, want 10", count.Load())
	}
}

func TestRunBatchesPropagatesFirstError(t *testing.T) {
	p := New(2)
	defer p.Stop()

	wantErr := errors.New("record failed")
	err := p.RunBatches(3, func(batchIdx int) error {
		if batchIdx == 1 {
			return wantErr
		}
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunBatches() error = %v, want %v", err, wantErr)
	}
}

func TestRunBatchesWithDefaultWorkerCount(t *testing.T) {
	p := New(0)
	defer p.Stop()

	if err := p.RunBatches(1, func(int) error { return nil }); err != nil {
		t.Fatalf("RunBatches() error = %v", err)
	}
}
