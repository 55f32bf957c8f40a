// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rhi

import "context"

// BufferBarrier is a single synchronization/access transition for a buffer
// range, the unit component I (barrier.go) synthesizes between passes.
type BufferBarrier struct {
	Buffer          BufferHandle
	OffsetBytes     uint64
	SizeBytes       uint64
	SyncBefore      PipelineSyncStage
	SyncAfter       PipelineSyncStage
	AccessBefore    PipelineAccess
	AccessAfter     PipelineAccess
}

// TextureRange identifies the mip/array subresource range a TextureBarrier
// applies to.
type TextureRange struct {
	BaseMipLevel, MipLevelCount     uint32
	BaseArrayLayer, ArrayLayerCount uint32
}

// Texture2DBarrier is a 2D texture's barrier unit, additionally carrying the
// layout transition a buffer has no analog for.
type Texture2DBarrier struct {
	Texture      Texture2DHandle
	Range        TextureRange
	SyncBefore   PipelineSyncStage
	SyncAfter    PipelineSyncStage
	AccessBefore PipelineAccess
	AccessAfter  PipelineAccess
	LayoutBefore TextureLayout
	LayoutAfter  TextureLayout
}

// Texture3DRange identifies the mip range a Texture3DBarrier applies to. 3D
// textures have no array layers, only depth slices, which a single mip's
// barrier always spans in full.
type Texture3DRange struct {
	BaseMipLevel, MipLevelCount uint32
}

// Texture3DBarrier is the volumetric-texture analog of Texture2DBarrier.
type Texture3DBarrier struct {
	Texture      Texture3DHandle
	Range        Texture3DRange
	SyncBefore   PipelineSyncStage
	SyncAfter    PipelineSyncStage
	AccessBefore PipelineAccess
	AccessAfter  PipelineAccess
	LayoutBefore TextureLayout
	LayoutAfter  TextureLayout
}

// ColorAttachment binds one render-target view for a BeginRenderPass call.
type ColorAttachment struct {
	View     ViewHandle
	Load     LoadOp
	Clear    ClearValue
}

// DepthStencilAttachment binds the depth/stencil view for a render pass.
type DepthStencilAttachment struct {
	View      ViewHandle
	Load      LoadOp
	Clear     ClearValue
	ReadOnly  bool
}

// RenderPassBeginDesc is the set of attachments a render (non-compute) pass
// records against.
type RenderPassBeginDesc struct {
	ColorAttachments []ColorAttachment
	DepthStencil     *DepthStencilAttachment
	Width, Height    uint32
}

// TemporaryResource is a host-visible buffer range allocated for the
// lifetime of a single pass (spec component K), such as a dynamically
// constructed uniform upload. It is released automatically when the command
// list it was allocated from retires; callers never free it explicitly.
type TemporaryResource struct {
	Buffer      BufferHandle
	OffsetBytes uint64
	SizeBytes   uint64
	CPU         []byte
}

// CommandList records a single sequence of GPU commands. The render graph
// never implements this interface itself — it is satisfied by a concrete
// RHI backend (or, in this repository, rhi/noop's recording mock) and
// consumed through PassExecutionContext.
type CommandList interface {
	// BufferBarrierOp, Texture2DBarrierOp and Texture3DBarrierOp insert the
	// barriers component I computed immediately before the pass that needs
	// them runs.
	BufferBarrierOp(barriers []BufferBarrier)
	Texture2DBarrierOp(barriers []Texture2DBarrier)
	Texture3DBarrierOp(barriers []Texture3DBarrier)

	BeginRenderPass(desc RenderPassBeginDesc)
	EndRenderPass()

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	Dispatch(groupsX, groupsY, groupsZ uint32)

	CopyBufferRegion(dst BufferHandle, dstOffset uint64, src BufferHandle, srcOffset, size uint64)
	UploadTextureData(dst Texture2DHandle, mipLevel uint32, data []byte, footprint Footprint)

	// QueueBufferReadback schedules src to be copied back to host-visible
	// memory; the copy completes once the frame this command list belongs to
	// has retired on the GPU timeline.
	QueueBufferReadback(src BufferHandle, offset, size uint64) (ReadbackTicket, error)

	// AllocateTemporaryResource carves a scratch host-visible buffer range
	// that lives exactly as long as this command list (spec component K).
	AllocateTemporaryResource(sizeBytes uint64) (TemporaryResource, error)
}

// ReadbackTicket lets a caller poll for a previously queued readback.
type ReadbackTicket interface {
	// Poll reports whether the readback has completed and, if so, its data.
	Poll() (data []byte, ready bool)
}

// Device is the RHI device/queue abstraction the render graph allocates
// resources and command lists against. It is the sole seam between this
// module and a concrete GPU backend; spec.md §1 scopes concrete backend
// implementations out, so this module ships only rhi/noop as a fixture.
type Device interface {
	// CreateBuffer, CreateTexture2D and CreateTexture3D place a resource over
	// a region the render graph supplies: a page range carved from
	// internal/gpumem (non-pinned textures) or a dedicated GPUAlloc backing
	// (pinned resources and internal/tempbuf's ring-slot buffers) — Device
	// never allocates memory on a resource's behalf.
	CreateBuffer(desc BufferDesc, region GPUMemoryRegion) (BufferHandle, error)
	CreateTexture2D(desc Texture2DDesc, region GPUMemoryRegion) (Texture2DHandle, error)
	CreateTexture3D(desc Texture3DDesc, region GPUMemoryRegion) (Texture3DHandle, error)

	DestroyBuffer(h BufferHandle)
	DestroyTexture2D(h Texture2DHandle)
	DestroyTexture3D(h Texture3DHandle)

	// MapBuffer returns the persistently-mapped CPU pointer for a buffer
	// created with a host-visible AllocFlags, backing internal/tempbuf's
	// ring slots. It errors for a device-only buffer.
	MapBuffer(h BufferHandle) ([]byte, error)

	CreateBufferView(buf BufferHandle, desc BufferViewDesc) (ViewHandle, error)
	CreateTypedBufferView(buf BufferHandle, desc TypedBufferViewDesc) (ViewHandle, error)
	CreateUniformBufferView(buf BufferHandle, desc BufferViewDesc) (ViewHandle, error)
	CreateRWBufferView(buf BufferHandle, desc BufferViewDesc) (ViewHandle, error)

	CreateTexture2DShaderView(tex Texture2DHandle, desc Texture2DViewDesc) (ViewHandle, error)
	CreateTexture2DStorageView(tex Texture2DHandle, desc Texture2DViewDesc) (ViewHandle, error)
	CreateTexture2DRenderTargetView(tex Texture2DHandle, desc Texture2DViewDesc) (ViewHandle, error)
	CreateTexture2DDepthStencilView(tex Texture2DHandle, desc Texture2DViewDesc) (ViewHandle, error)
	CreateTexture3DShaderView(tex Texture3DHandle, desc Texture3DViewDesc) (ViewHandle, error)
	CreateTexture3DStorageView(tex Texture3DHandle, desc Texture3DViewDesc) (ViewHandle, error)
	DestroyView(v ViewHandle)

	// CalculateTexture2DFootprint and CalculateTexture3DFootprint size a
	// texture from its description alone, before it exists, so the resource
	// materializer (component H) can size the memory region it must carve for a
	// CreateTexture2D/CreateTexture3D call that hasn't happened yet.
	CalculateTexture2DFootprint(desc Texture2DDesc) (Footprint, error)
	CalculateTexture3DFootprint(desc Texture3DDesc) (Footprint, error)

	// GPUAlloc and GPUFree back internal/gpumem's page allocator: one
	// physical GPU heap backing per call, sized by the allocator.
	GPUAlloc(sizeInBytes uint64, flags GPUAllocationFlags) (any, error)
	GPUFree(backing any)

	AllocateCommandList(ctx context.Context) (CommandList, error)
	SubmitCommandLists(ctx context.Context, lists []CommandList) error

	// EndFrame signals the device that frameIndex's submissions are
	// complete, letting it retire resources pinned to that frame. The render
	// graph's own temporary-buffer ring is flushed by Graph.Reset, not here.
	EndFrame(frameIndex uint64) error

	// DrainGPU blocks until all submitted work has retired. The render graph
	// itself never calls it.
	DrainGPU(ctx context.Context) error
}
