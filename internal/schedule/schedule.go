// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package schedule implements the fixed-size worker pool the render graph's
// parallel Execute mode dispatches pass-batch recording tasks onto (spec
// component J, parallel path). It generalizes internal/thread's
// single-dedicated-goroutine pattern from one worker to N (spec.md §5: "a
// user-level task scheduler with worker threads of parallelism roughly
// equal to CPU cores"), and uses golang.org/x/sync/errgroup for the
// final-task join barrier ("a final [task] depends on all recording tasks",
// spec.md §4.J) rather than hand-rolled WaitGroup bookkeeping.
package schedule

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size goroutine worker pool. Workers are started once at
// construction and parked on a work channel, mirroring internal/thread's
// "lock a goroutine, park on a channel" shape, just replicated N times
// instead of once.
type Pool struct {
	work chan func()
	done chan struct{}
}

// New creates a Pool with the given worker count. A non-positive count
// defaults to runtime.GOMAXPROCS(0), matching spec.md §5's "roughly equal to
// CPU cores."
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		work: make(chan func()),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	for {
		select {
		case f := <-p.work:
			f()
		case <-p.done:
			return
		}
	}
}

// Stop shuts every worker goroutine down. The pool must not be used
// afterward.
func (p *Pool) Stop() {
	close(p.done)
}

// RunBatches submits one task per batch, each recording its assigned pass
// range via record, and blocks until every task has completed — the join
// barrier spec.md §4.J describes as "a final [task]
// depends on all recording tasks." Batches are independent: a failure in one
// does not stop the others from running, but the first error is returned
// once all have finished (errgroup.Group's default behavior), so the graph
// can still reason about exactly which command lists were produced before
// aborting.
func (p *Pool) RunBatches(batches int, record func(batchIdx int) error) error {
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < batches; i++ {
		i := i
		done := make(chan error, 1)
		select {
		case p.work <- func() { done <- record(i) }:
		case <-p.done:
			return context.Canceled
		}
		g.Go(func() error { return <-done })
	}
	return g.Wait()
}
