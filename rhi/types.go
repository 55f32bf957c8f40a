// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rhi

import "strings"

// PipelineSyncStage is a bitset of GPU pipeline stages a barrier can
// synchronize against. Values and bit assignments match the original RHI
// (rhi/command_list.hpp) exactly, since spec.md §4.H's folding table assumes
// these exact stages.
type PipelineSyncStage uint32

const (
	SyncStageNone PipelineSyncStage = 0

	SyncStageIndirectCommand PipelineSyncStage = 0x01

	SyncStageInputAssembly    PipelineSyncStage = 0x02
	SyncStageVertexShader     PipelineSyncStage = 0x04
	SyncStagePixelShader      PipelineSyncStage = 0x08
	SyncStageEarlyDepthTest   PipelineSyncStage = 0x10
	SyncStageLateDepthTest    PipelineSyncStage = 0x20
	SyncStageRenderTargetOut  PipelineSyncStage = 0x40
	SyncStageComputeShader    PipelineSyncStage = 0x80
	SyncStageRayTracing       PipelineSyncStage = 0x100
	SyncStageBuildAS          PipelineSyncStage = 0x200
	SyncStageCopyAS           PipelineSyncStage = 0x400
	SyncStageCopy             PipelineSyncStage = 0x800
	SyncStageAll              PipelineSyncStage = 0xFFFFFFFF
)

var syncStageNames = []struct {
	bit  PipelineSyncStage
	name string
}{
	{SyncStageIndirectCommand, "IndirectCommand"},
	{SyncStageInputAssembly, "InputAssembly"},
	{SyncStageVertexShader, "VertexShader"},
	{SyncStagePixelShader, "PixelShader"},
	{SyncStageEarlyDepthTest, "EarlyDepthTest"},
	{SyncStageLateDepthTest, "LateDepthTest"},
	{SyncStageRenderTargetOut, "RenderTargetOutput"},
	{SyncStageComputeShader, "ComputeShader"},
	{SyncStageRayTracing, "RayTracing"},
	{SyncStageBuildAS, "BuildAccelerationStructure"},
	{SyncStageCopyAS, "CopyAccelerationStructure"},
	{SyncStageCopy, "Copy"},
}

// String renders the set bits, comma separated.
func (s PipelineSyncStage) String() string {
	if s == SyncStageNone {
		return "None"
	}
	if s == SyncStageAll {
		return "All"
	}
	var parts []string
	for _, e := range syncStageNames {
		if s&e.bit != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

// PipelineAccess is a bitset of memory access kinds a barrier guards.
type PipelineAccess uint32

const (
	AccessNone PipelineAccess = 0

	AccessCommandInput        PipelineAccess = 0x01
	AccessVertexInput         PipelineAccess = 0x02
	AccessIndexInput          PipelineAccess = 0x04
	AccessShaderRead          PipelineAccess = 0x08
	AccessShaderReadWrite     PipelineAccess = 0x10
	AccessRenderTargetWrite   PipelineAccess = 0x20
	AccessDepthTargetRead     PipelineAccess = 0x40
	AccessDepthTargetReadWrite PipelineAccess = 0x80
	AccessCopyRead            PipelineAccess = 0x100
	AccessCopyWrite           PipelineAccess = 0x200
	AccessASRead              PipelineAccess = 0x400
	AccessASWrite             PipelineAccess = 0x800
	AccessUniformBuffer       PipelineAccess = 0x1000
)

// TextureLayout is the GPU-side image layout a texture barrier transitions
// between. Present is exclusive with every other access in the same pass
// (spec.md §4.H, enforced in materialize.go before barrier synthesis).
type TextureLayout uint32

const (
	LayoutUndefined TextureLayout = iota
	LayoutGeneral
	LayoutRenderTarget
	LayoutDepthTargetRead
	LayoutDepthTargetReadWrite
	LayoutShaderRead
	LayoutShaderReadWrite
	LayoutCopyRead
	LayoutCopyWrite
	LayoutPresent
)

func (l TextureLayout) String() string {
	names := [...]string{
		"Undefined", "General", "RenderTarget", "DepthTargetRead",
		"DepthTargetReadWrite", "ShaderRead", "ShaderReadWrite", "CopyRead",
		"CopyWrite", "Present",
	}
	if int(l) < len(names) {
		return names[l]
	}
	return "TextureLayout(?)"
}

// LoadOp selects how a render/depth attachment's prior contents are treated
// at the start of a pass.
type LoadOp uint32

const (
	LoadOpDoNotCare LoadOp = iota
	LoadOpLoad
	LoadOpClear
	LoadOpDiscard
)

// BufferCreationFlags accumulates the capabilities a buffer must be created
// with, inferred by the build-step analyzer (spec component G) from the
// accesses declared across all passes that touch it.
type BufferCreationFlags uint32

const (
	BufferFlagNone BufferCreationFlags = 0

	BufferFlagShaderReadOnly  BufferCreationFlags = 0x01
	BufferFlagShaderReadWrite BufferCreationFlags = 0x02
	BufferFlagAccelStructure  BufferCreationFlags = 0x04
	BufferFlagUniformBuffer   BufferCreationFlags = 0x08
)

// TextureCreationFlags is BufferCreationFlags's texture-side analog.
type TextureCreationFlags uint32

const (
	TextureFlagNone TextureCreationFlags = 0

	TextureFlagShaderReadOnly  TextureCreationFlags = 0x01
	TextureFlagShaderReadWrite TextureCreationFlags = 0x02
	TextureFlagRenderTarget    TextureCreationFlags = 0x04
	TextureFlagDepthTarget     TextureCreationFlags = 0x08
	TextureFlagCubemap         TextureCreationFlags = 0x10
)

// GPUAllocationFlags describes the memory kind an RHI backing allocation is
// requested from.
type GPUAllocationFlags uint32

const (
	GPUAllocNone GPUAllocationFlags = 0

	GPUAllocDeviceAccessOptimal GPUAllocationFlags = 0x01
	GPUAllocHostVisible         GPUAllocationFlags = 0x02
	GPUAllocHostCoherent        GPUAllocationFlags = 0x04
	GPUAllocHostCached          GPUAllocationFlags = 0x08
	GPUAllocMemoryless          GPUAllocationFlags = 0x10

	GPUAllocDeviceOnly           = GPUAllocDeviceAccessOptimal
	GPUAllocDeviceOnlyMemoryless = GPUAllocDeviceAccessOptimal | GPUAllocMemoryless
	GPUAllocHostUpload           = GPUAllocHostVisible | GPUAllocHostCoherent | GPUAllocHostCached
	GPUAllocHostReadback         = GPUAllocHostVisible | GPUAllocHostCached
)

// TextureFormat enumerates the pixel formats this module's tests and noop
// backend reason about. Production backends would own a much larger table;
// the render-graph core only ever threads format values through, it never
// branches on them.
type TextureFormat uint32

const (
	FormatUnknown TextureFormat = iota
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatD32Float
	FormatR16Float
	FormatR32Uint
)

// Viewport describes the render-target region and depth range the render
// graph's current pass records against. Graph.PushViewport/PopViewport
// maintain a stack of these; adaptive-sized resources (spec.md §6.2,
// TextureSizeMode) divide the viewport's Width/Height by a fixed divisor
// rather than hard-coding dimensions.
type Viewport struct {
	X, Y                float32
	Width, Height        uint32
	MinDepth, MaxDepth   float32
}

// ClearValue is a color or depth/stencil clear, mirroring rhi::ClearValue's
// tagged union as two named constructors instead of a C union.
type ClearValue struct {
	Color        [4]float32
	Depth        float32
	Stencil      uint8
	IsDepthClear bool
}

// ClearColor builds an RGBA clear value.
func ClearColor(r, g, b, a float32) ClearValue {
	return ClearValue{Color: [4]float32{r, g, b, a}}
}

// ClearDepthStencil builds a depth/stencil clear value.
func ClearDepthStencil(depth float32, stencil uint8) ClearValue {
	return ClearValue{Depth: depth, Stencil: stencil, IsDepthClear: true}
}
