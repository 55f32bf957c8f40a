// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import (
	"testing"

	"github.com/gogpu/rendergraph/rhi"
	"github.com/gogpu/rendergraph/rhi/noop"
)

func testOptions() Options {
	o := DefaultOptions()
	o.ScratchBytes = 1 << 16
	o.PagesPerBacking = 16 // 1 MiB: fits the largest test texture (512x512 RGBA8)
	o.TempBufLatency = 2
	o.TempBufSlotBytes = 1 << 16
	o.Workers = 4
	return o
}

func viewport1080p() rhi.Viewport {
	return rhi.Viewport{Width: 1920, Height: 1080, MaxDepth: 1}
}

// Scenario 1: single compute pass writing an internal buffer, no reads.
func TestSingleComputePassWritesBuffer(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	b := g.AllocateBuffer(BufferDesc{SizeBytes: 1024, Name: "B"})

	type passData struct{ ran bool }
	data := &passData{}
	AddRenderPass(g, RenderPassDesc[passData]{
		Name:    "P",
		Flags:   PassFlagIsSmall | PassFlagComputeOnly,
		Buffers: []BufferUsage{b.ShaderReadWrite(ReadWriteFlagsNone)},
		OnExecute: func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, data *passData, passIdx int) {
			data.ran = true
			ctx.ResolveRWBufferView(b)
		},
	}, data)

	g.Build()
	g.Execute(ExecuteFlagForceSingleThreaded)

	if !data.ran {
		t.Fatalf("pass OnExecute never ran")
	}
	if n := dev.CountOp("CreateBuffer"); n != 1 {
		t.Fatalf("CreateBuffer called %d times, want 1", n)
	}
	if n := dev.CountOp("CreateRWBufferView"); n != 1 {
		t.Fatalf("CreateRWBufferView called %d times, want 1", n)
	}
	if len(dev.Submitted) != 1 || len(dev.Submitted[0]) != 1 {
		t.Fatalf("Submitted = %+v, want exactly one command list in one submit", dev.Submitted)
	}
	cl := dev.Submitted[0][0].(*noop.CommandList)
	if n := cl.CountOp("BufferBarrier"); n != 1 {
		t.Fatalf("BufferBarrier emitted %d times, want 1", n)
	}

	// Reset for the next frame: the non-pinned buffer must be destroyed.
	g.Reset(viewport1080p())
	if n := dev.CountOp("DestroyBuffer"); n != 1 {
		t.Fatalf("DestroyBuffer called %d times after Reset, want 1", n)
	}
}

// Scenario 2: two passes with a producer-consumer dependency through a
// color-attached, then sampled, texture.
func TestProducerConsumerTextureBarrier(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(rhi.Viewport{Width: 512, Height: 512, MaxDepth: 1})
	tex := g.AllocateTexture2D(Texture2DDesc{Width: 512, Height: 512, Format: rhi.FormatRGBA8Unorm, SizeMode: SizeModeFixed, Name: "T"})

	type noData struct{}
	AddRenderPass(g, RenderPassDesc[noData]{
		Name:             "P0",
		ColorAttachments: []TextureAttachment{{Texture: tex, Load: rhi.LoadOpClear, Clear: rhi.ClearColor(0, 0, 0, 1)}},
		OnExecute:        func(rhi.Device, *PassExecutionContext, rhi.CommandList, *noData, int) {},
	}, &noData{})
	AddRenderPass(g, RenderPassDesc[noData]{
		Name:       "P1",
		Flags:      PassFlagComputeOnly,
		Textures2D: []Texture2DUsage{tex.ShaderReadOnly()},
		OnExecute: func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, data *noData, passIdx int) {
			ctx.ResolveTexture2DShaderView(tex)
		},
	}, &noData{})

	g.Build()
	g.Execute(ExecuteFlagForceSingleThreaded)

	// Neither pass is IsSmall, so partitionBatches gives each its own
	// command list: Submitted[0][0] is P0's, Submitted[0][1] is P1's.
	if len(dev.Submitted) != 1 || len(dev.Submitted[0]) != 2 {
		t.Fatalf("Submitted = %+v, want one submit of exactly 2 command lists", dev.Submitted)
	}
	p0 := dev.Submitted[0][0].(*noop.CommandList)
	if n := p0.CountOp("Texture2DBarrier"); n != 0 {
		t.Fatalf("P0's Texture2DBarrier emitted %d times, want 0 (nothing has touched T yet)", n)
	}
	p1 := dev.Submitted[0][1].(*noop.CommandList)
	if n := p1.CountOp("Texture2DBarrier"); n != 1 {
		t.Fatalf("P1's Texture2DBarrier emitted %d times, want exactly 1 (RenderTarget->ShaderRead)", n)
	}
}

// A compute pass writes a buffer, then a draw pass consumes it as a DrawID
// (instance) buffer: the barrier between them must synchronize against
// SyncStageInputAssembly, not SyncStageVertexShader, per
// original_source/libs/render_graph/src/render_graph.cpp's DrawIDBuffer
// fold (bufferAccessFold(BufferAccessDrawID, ...)).
func TestDrawIDBufferBarrierUsesInputAssemblyStage(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	b := g.AllocateBuffer(BufferDesc{SizeBytes: 64, Name: "Instances"})

	type noData struct{}
	AddRenderPass(g, RenderPassDesc[noData]{
		Name:    "P0",
		Flags:   PassFlagComputeOnly,
		Buffers: []BufferUsage{b.ShaderReadWrite(ReadWriteFlagsNone)},
		OnExecute: func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, data *noData, passIdx int) {
			ctx.ResolveRWBufferView(b)
		},
	}, &noData{})
	AddRenderPass(g, RenderPassDesc[noData]{
		Name:    "P1",
		Buffers: []BufferUsage{b.DrawIDBuffer()},
		OnExecute: func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, data *noData, passIdx int) {
			ctx.ResolveBuffer(b)
		},
	}, &noData{})

	g.Build()
	g.Execute(ExecuteFlagForceSingleThreaded)

	if len(dev.Submitted) != 1 || len(dev.Submitted[0]) != 2 {
		t.Fatalf("Submitted = %+v, want one submit of exactly 2 command lists", dev.Submitted)
	}
	p1 := dev.Submitted[0][1].(*noop.CommandList)
	if n := p1.CountOp("BufferBarrier"); n != 1 {
		t.Fatalf("P1's BufferBarrier emitted %d times, want exactly 1 (ComputeShader/ShaderReadWrite -> InputAssembly/VertexInput)", n)
	}

	cold, ok := g.reg.buffers.GetCold(b.h)
	if !ok {
		t.Fatalf("buffer cold storage missing after Build")
	}
	if cold.barrier.currSync != rhi.SyncStageInputAssembly {
		t.Fatalf("buffer's currSync after DrawIDBuffer fold = %v, want SyncStageInputAssembly", cold.barrier.currSync)
	}
}

// Scenario 3: adaptive sizing resolves against the active viewport at
// first use.
func TestAdaptiveSizingResolvesAgainstViewport(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(rhi.Viewport{Width: 1280, Height: 720, MaxDepth: 1})
	tex := g.AllocateTexture2D(Texture2DDesc{
		Width: 2, Height: 2, SizeMode: SizeModeAdaptive, Format: rhi.FormatRGBA8Unorm, Name: "Half",
	})

	type noData struct{}
	AddRenderPass(g, RenderPassDesc[noData]{
		Name:       "P0",
		Textures2D: []Texture2DUsage{tex.ShaderReadWrite(0, ReadWriteFlagsNone)},
		OnExecute:  func(rhi.Device, *PassExecutionContext, rhi.CommandList, *noData, int) {},
	}, &noData{})

	g.Build()

	cold, ok := g.reg.textures2D.GetCold(tex.h)
	if !ok {
		t.Fatalf("texture cold storage missing after Build")
	}
	if cold.resolvedWidth != 640 || cold.resolvedHeight != 360 {
		t.Fatalf("resolved dims = %dx%d, want 640x360", cold.resolvedWidth, cold.resolvedHeight)
	}
}

// Scenario 4: a pinned resource creates its RHI object once and survives
// across frames.
func TestPinnedResourceSurvivesAcrossFrames(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	pinned := g.AllocateTexture2D(Texture2DDesc{
		Width: 64, Height: 64, Format: rhi.FormatRGBA8Unorm, SizeMode: SizeModeFixed,
		Flags: ResourceFlagPinned, Name: "Pinned",
	})

	runFrame := func() {
		type noData struct{}
		AddRenderPass(g, RenderPassDesc[noData]{
			Name:       "P",
			Textures2D: []Texture2DUsage{pinned.ShaderReadWrite(0, ReadWriteFlagsNone)},
			OnExecute:  func(rhi.Device, *PassExecutionContext, rhi.CommandList, *noData, int) {},
		}, &noData{})
		g.Build()
		g.Execute(ExecuteFlagForceSingleThreaded)
	}

	runFrame()
	if n := dev.CountOp("CreateTexture2D"); n != 1 {
		t.Fatalf("CreateTexture2D called %d times on frame 0, want 1", n)
	}

	g.Reset(viewport1080p())
	runFrame()
	if n := dev.CountOp("CreateTexture2D"); n != 1 {
		t.Fatalf("CreateTexture2D called %d times after frame 1, want still 1 (pinned, reused)", n)
	}
	if n := dev.CountOp("DestroyTexture2D"); n != 0 {
		t.Fatalf("DestroyTexture2D called %d times, want 0 (pinned resource never destroyed between frames)", n)
	}
}

// Scenario 5: single-threaded mode merges IsSmall passes into the next
// non-small pass's command list.
func TestSmallPassMergingSingleThreaded(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	b := g.AllocateBuffer(BufferDesc{SizeBytes: 64, Name: "B"})

	type noData struct{ ran *[]string }
	order := []string{}
	addPass := func(name string, flags PassFlags) {
		AddRenderPass(g, RenderPassDesc[noData]{
			Name:    name,
			Flags:   flags | PassFlagComputeOnly,
			Buffers: []BufferUsage{b.ShaderReadWrite(ReadWriteFlagsNone)},
			OnExecute: func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, data *noData, passIdx int) {
				*data.ran = append(*data.ran, name)
			},
		}, &noData{ran: &order})
	}
	addPass("P0", PassFlagIsSmall)
	addPass("P1", PassFlagIsSmall)
	addPass("P2", PassFlagNone)

	g.Build()
	g.Execute(ExecuteFlagForceSingleThreaded)

	if len(dev.Submitted) != 1 || len(dev.Submitted[0]) != 1 {
		t.Fatalf("Submitted = %+v, want exactly one command list", dev.Submitted)
	}
	if len(order) != 3 || order[0] != "P0" || order[1] != "P1" || order[2] != "P2" {
		t.Fatalf("execution order = %v, want [P0 P1 P2]", order)
	}
}

// Scenario 6: parallel mode partitions into batches [P0,P1] and [P2,P3].
func TestParallelBatchPartitioning(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	b := g.AllocateBuffer(BufferDesc{SizeBytes: 64, Name: "B"})

	type noData struct{}
	addPass := func(name string, flags PassFlags) {
		AddRenderPass(g, RenderPassDesc[noData]{
			Name:    name,
			Flags:   flags | PassFlagComputeOnly,
			Buffers: []BufferUsage{b.ShaderReadWrite(ReadWriteFlagsNone)},
			OnExecute: func(rhi.Device, *PassExecutionContext, rhi.CommandList, *noData, int) {
			},
		}, &noData{})
	}
	addPass("P0", PassFlagIsSmall)
	addPass("P1", PassFlagNone)
	addPass("P2", PassFlagIsSmall)
	addPass("P3", PassFlagNone)

	batches := partitionBatches(g.passes)
	if len(batches) != 2 {
		t.Fatalf("partitionBatches produced %d batches, want 2: %v", len(batches), batches)
	}
	if batches[0] != [2]int{0, 2} || batches[1] != [2]int{2, 4} {
		t.Fatalf("batches = %v, want [[0 2] [2 4]]", batches)
	}

	g.Build()
	g.Execute(ExecuteFlagsNone)

	if len(dev.Submitted) != 1 || len(dev.Submitted[0]) != 2 {
		t.Fatalf("Submitted = %+v, want one submit of exactly 2 command lists", dev.Submitted)
	}
}

// Zero passes is a no-op: Build and Execute run but nothing is submitted
// (spec.md §8: "reset(v); build(); execute(); with zero passes is a no-op
// (no submits)").
func TestZeroPassesExecuteDoesNotSubmit(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	g.Build()
	g.Execute(ExecuteFlagForceSingleThreaded)

	if n := dev.CountOp("SubmitCommandLists"); n != 0 {
		t.Fatalf("SubmitCommandLists called %d times, want 0 for zero passes", n)
	}
	if n := dev.CountOp("AllocateCommandList"); n != 0 {
		t.Fatalf("AllocateCommandList called %d times, want 0 for zero passes", n)
	}
}

func TestPresentMustBeOnlyAccessThisPass(t *testing.T) {
	dev := noop.NewDevice()
	g := New(dev, testOptions())

	g.Reset(viewport1080p())
	swap := g.RegisterTexture2D(Texture2DRegistrationDesc{
		Handle: rhi.Texture2DHandle(1), Width: 1920, Height: 1080, Format: rhi.FormatBGRA8Unorm, Name: "SwapChain",
	})

	type noData struct{}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic declaring Present alongside ShaderReadOnly in the same pass")
		}
		ge, ok := r.(*GraphError)
		if !ok || ge.Kind != KindLifetime {
			t.Fatalf("recovered %v, want *GraphError{Kind: KindLifetime}", r)
		}
	}()

	AddRenderPass(g, RenderPassDesc[noData]{
		Name:       "P",
		Textures2D: []Texture2DUsage{swap.ShaderReadOnly(), swap.Present()},
		OnExecute:  func(rhi.Device, *PassExecutionContext, rhi.CommandList, *noData, int) {},
	}, &noData{})

	g.Build()
}
