// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import "github.com/gogpu/rendergraph/rhi"

// PassFlags are per-pass declaration-time flags.
type PassFlags uint32

const (
	PassFlagNone PassFlags = 0

	// PassFlagIsSmall marks a pass cheap enough that the execution
	// scheduler should merge its commands into the next non-small pass's
	// command list rather than submitting it alone (spec component J).
	PassFlagIsSmall PassFlags = 1 << 0

	// PassFlagComputeOnly narrows ShaderReadOnly/ShaderReadWrite's
	// contributed sync stage to ComputeShader only, instead of the full
	// Vertex|Pixel|Compute|RayTracing set (spec.md §4.H table).
	PassFlagComputeOnly PassFlags = 1 << 1

	// PassFlagAllDrawUseEarlyZ selects the early-depth-test sync/access
	// row for this pass's depth attachment instead of late.
	PassFlagAllDrawUseEarlyZ PassFlags = 1 << 2

	// PassFlagReadOnlyDepth marks the pass's depth attachment read-only.
	PassFlagReadOnlyDepth PassFlags = 1 << 3
)

// RenderPassDesc describes one declared pass, parameterized over its opaque
// per-pass data type T. AddRenderPass copies every slice field into the
// graph's per-frame scratch arena, so the caller's own slices may be reused
// or discarded immediately after the call returns.
type RenderPassDesc[T any] struct {
	Name             string
	Flags            PassFlags
	ColorAttachments []TextureAttachment
	DepthAttachment  *TextureAttachment
	Textures2D       []Texture2DUsage
	Textures3D       []Texture3DUsage
	Buffers          []BufferUsage

	// TLAS lists the top-level acceleration structures this pass binds for
	// ray-tracing shader access. The graph does not own, build, or barrier
	// these; it only threads the list through to the pass's execution
	// context for shader-table binding (spec.md §3, "TLAS list").
	TLAS []rhi.AccelerationStructureHandle

	// OnExecute records this pass's commands. It runs once per Execute,
	// on the owner thread in single-threaded mode or on a worker goroutine
	// in parallel mode (spec.md §5).
	OnExecute func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, data *T, passIdx int)
}

// passRecord is the type-erased, arena-backed storage for one declared
// pass. The original erases T via a raw pointer plus a typed trampoline
// function pointer; Go has no need for that dance; AddRenderPass[T] closes
// over data and OnExecute directly in exec, which is itself already a
// statically-typed, boxed closure, and that closure is the type erasure.
type passRecord struct {
	name  string
	flags PassFlags

	colorAttachments []TextureAttachment
	depthAttachment  *TextureAttachment
	textures2D       []Texture2DUsage
	textures3D       []Texture3DUsage
	buffers          []BufferUsage
	tlas             []rhi.AccelerationStructureHandle

	viewport rhi.Viewport

	exec func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, passIdx int)

	// Appended to by materialize.go during Build, one entry per emitted
	// barrier.
	bufferBarriers []rhi.BufferBarrier
	tex2DBarriers  []rhi.Texture2DBarrier
	tex3DBarriers  []rhi.Texture3DBarrier
}

// ExecuteFlags selects Execute's concurrency mode.
type ExecuteFlags uint32

const (
	ExecuteFlagsNone ExecuteFlags = 0

	// ExecuteFlagForceSingleThreaded disables batch parallelism even when
	// the Graph was constructed with a worker pool.
	ExecuteFlagForceSingleThreaded ExecuteFlags = 1 << 0
)
