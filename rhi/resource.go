// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rhi

// BufferDesc describes a GPU buffer to be created by a Device. The render
// graph fills CreationFlags by OR-folding every BufferUsage declared by
// passes that touch the resource (spec component G).
type BufferDesc struct {
	SizeBytes      uint64
	CreationFlags  BufferCreationFlags
	AllocFlags     GPUAllocationFlags
	DebugName      string
}

// Texture2DDesc describes a 2D (optionally array/cubemap) texture.
type Texture2DDesc struct {
	Width, Height uint32
	ArrayLayers   uint32
	MipLevels     uint32
	Format        TextureFormat
	CreationFlags TextureCreationFlags
	AllocFlags    GPUAllocationFlags
	DebugName     string
}

// Texture3DDesc describes a volumetric texture.
type Texture3DDesc struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	Format               TextureFormat
	CreationFlags        TextureCreationFlags
	AllocFlags           GPUAllocationFlags
	DebugName            string
}

// GPUMemoryRegion identifies the backing memory a resource is created over:
// either a gpumem.Region (transient, device-only) or a direct device
// allocation for a pinned resource. The render graph always supplies one;
// Device never allocates memory on a resource's behalf.
type GPUMemoryRegion struct {
	Backing     any
	OffsetBytes uint64
	SizeBytes   uint64
}

// BufferViewDesc describes a raw, uniform, or read-write view over a buffer
// range (selected by which Device creation method is used).
type BufferViewDesc struct {
	OffsetBytes uint64
	SizeBytes   uint64
}

// TypedBufferViewDesc describes a structured/typed view over a buffer range,
// striped into ElementCount elements of ElementSizeBytes each.
type TypedBufferViewDesc struct {
	OffsetBytes      uint64
	ElementSizeBytes uint64
	ElementCount     uint64
}

// Texture2DViewDesc describes a 2D texture view (shader-resource, UAV, or
// render-target, selected by the creation method used on Device).
type Texture2DViewDesc struct {
	BaseMipLevel, MipLevelCount     uint32
	BaseArrayLayer, ArrayLayerCount uint32
}

// Texture3DViewDesc describes a 3D texture view, optionally restricted to a
// sub-range of depth slices at a given mip.
type Texture3DViewDesc struct {
	MipLevel               uint32
	BaseDepthSlice, DepthSliceCount uint32
}

// BufferHandle, Texture2DHandle and Texture3DHandle are opaque RHI resource
// handles, owned and returned by Device's creation methods. They are created
// once per physical allocation and outlive any number of views.
type BufferHandle uint64

// Texture2DHandle identifies a physical 2D texture allocation.
type Texture2DHandle uint64

// Texture3DHandle identifies a physical 3D texture allocation.
type Texture3DHandle uint64

// AccelerationStructureHandle identifies a top-level acceleration structure
// built and owned outside the render graph (the graph consumes a per-pass
// list of these for ray-tracing shader binding; it never builds, tracks the
// lifetime of, or barriers one itself — spec.md §3's "TLAS list" is read-only
// input to a pass, not a render-graph-owned resource kind).
type AccelerationStructureHandle uint64

// ViewHandle is a slim, bindless-capable view handle: it doubles as the
// shader-visible descriptor index for the view it names (spec.md §3,
// "32-bit slim handles ... index doubles as a bindless descriptor slot").
type ViewHandle uint32

// Invalid* are the zero-value sentinels every RHI handle type compares equal
// to before a successful creation call, mirroring handle.Handle's own
// zero-is-invalid convention one level up.
const (
	InvalidBufferHandle               BufferHandle                = 0
	InvalidTexture2DHandle            Texture2DHandle             = 0
	InvalidTexture3DHandle            Texture3DHandle             = 0
	InvalidViewHandle                 ViewHandle                  = 0
	InvalidAccelerationStructureHandle AccelerationStructureHandle = 0
)

// Footprint describes the byte layout of a single subresource, used by
// callers computing upload/readback strides.
type Footprint struct {
	RowPitchBytes   uint64
	SlicePitchBytes uint64
	SizeBytes       uint64
}
