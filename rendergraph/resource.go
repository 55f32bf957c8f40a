// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import (
	"github.com/gogpu/rendergraph/internal/handle"
	"github.com/gogpu/rendergraph/rhi"
)

// Salts distinguish the three RG resource handle kinds at the bit level,
// matching the original's common/handle.hpp constants exactly.
const (
	saltTexture2D uint8 = 0x20
	saltTexture3D uint8 = 0x21
	saltBuffer    uint8 = 0x22
)

type texture2DMarker struct{}

func (texture2DMarker) Salt() uint8 { return saltTexture2D }

type texture3DMarker struct{}

func (texture3DMarker) Salt() uint8 { return saltTexture3D }

type bufferMarker struct{}

func (bufferMarker) Salt() uint8 { return saltBuffer }

// Texture2D is a handle to a render-graph-managed (or registered external)
// 2D texture, valid only within the Graph that issued it and only until the
// next Reset unless the resource is Pinned.
type Texture2D struct{ h handle.Handle[texture2DMarker] }

// Texture3D is the volumetric-texture analog of Texture2D.
type Texture3D struct{ h handle.Handle[texture3DMarker] }

// Buffer is a handle to a render-graph-managed (or registered external)
// buffer.
type Buffer struct{ h handle.Handle[bufferMarker] }

// IsValid reports whether the handle is non-zero and carries its kind's
// salt. It does not compare the generation against the pool, so a handle
// whose slot has since been removed still reports true; the pool lookup
// during Build rejects it.
func (t Texture2D) IsValid() bool { return t.h.IsValid() }
func (t Texture3D) IsValid() bool { return t.h.IsValid() }
func (b Buffer) IsValid() bool    { return b.h.IsValid() }

// TextureSizeMode selects whether a texture's declared (width, height) are
// absolute pixel dimensions (Fixed) or divisors of the viewport active at the
// resource's first-use pass (Adaptive), resolved by the build-step analyzer
// (spec component G).
type TextureSizeMode uint8

const (
	SizeModeFixed TextureSizeMode = iota
	SizeModeAdaptive
)

// ResourceFlags are per-resource declaration-time flags.
type ResourceFlags uint32

const (
	ResourceFlagNone ResourceFlags = 0

	// ResourceFlagPinned opts a resource out of per-frame RHI
	// destruction: its GPU memory and RHI handle survive Reset and are
	// reused across frames. The Graph never destroys them: it has no
	// teardown method. Applies uniformly to textures and buffers.
	ResourceFlagPinned ResourceFlags = 1 << 0
)

type ownership uint8

const (
	ownershipInternal ownership = iota
	ownershipExternal
)

// Texture2DDesc describes a texture the graph allocates and owns.
type Texture2DDesc struct {
	Width, Height uint32
	ArrayLayers   uint32
	MipLevels     uint32
	Format        rhi.TextureFormat
	SizeMode      TextureSizeMode
	Flags         ResourceFlags
	Clear         rhi.ClearValue
	Name          string
}

// Texture3DDesc describes a volumetric texture the graph allocates and owns.
// SizeMode applies to Width/Height only; Depth is always an absolute slice
// count (the viewport carries no depth dimension to divide against).
type Texture3DDesc struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	Format               rhi.TextureFormat
	SizeMode             TextureSizeMode
	Flags                ResourceFlags
	Name                 string
}

// BufferDesc describes a buffer the graph allocates and owns.
type BufferDesc struct {
	SizeBytes uint64
	Flags     ResourceFlags
	Name      string
}

// Texture2DRegistrationDesc wraps an RHI texture the graph does not own
// (e.g. a swap-chain back buffer); the graph creates views over it but
// never creates or destroys the underlying RHI resource.
type Texture2DRegistrationDesc struct {
	Handle        rhi.Texture2DHandle
	Width, Height uint32
	ArrayLayers   uint32
	MipLevels     uint32
	Format        rhi.TextureFormat
	Clear         rhi.ClearValue
	Name          string
}

// Texture3DRegistrationDesc is the 3D analog of Texture2DRegistrationDesc.
type Texture3DRegistrationDesc struct {
	Handle               rhi.Texture3DHandle
	Width, Height, Depth uint32
	MipLevels            uint32
	Format               rhi.TextureFormat
	Name                 string
}

// BufferRegistrationDesc wraps an RHI buffer the graph does not own.
type BufferRegistrationDesc struct {
	Handle    rhi.BufferHandle
	SizeBytes uint64
	Name      string
}

// TextureAttachment binds a Texture2D as a color or depth/stencil attachment
// for a render pass, named by the distilled spec's §6.2 but with LoadOp's
// values only spelled out in original_source/ (see SPEC_FULL.md's
// "Supplemented features").
type TextureAttachment struct {
	Texture Texture2D
	Load    rhi.LoadOp
	Clear   rhi.ClearValue
}

// TextureAccess enumerates the non-attachment ways a pass can declare use of
// a texture. Render-target and depth-stencil access are declared instead via
// RenderPassDesc's ColorAttachments/DepthAttachment.
type TextureAccess uint8

const (
	TextureAccessShaderReadOnly TextureAccess = iota
	TextureAccessShaderReadWrite
	TextureAccessCopySource
	TextureAccessCopyDest
	TextureAccessPresentation
)

// BufferAccess enumerates the ways a pass can declare use of a buffer.
type BufferAccess uint8

const (
	BufferAccessShaderReadOnly BufferAccess = iota
	BufferAccessShaderReadWrite
	BufferAccessUniform
	BufferAccessIndex
	BufferAccessDrawID
	BufferAccessArgument
	BufferAccessCopySource
	BufferAccessCopyDest
)

// ResourceReadWriteFlags modifies a ShaderReadWrite usage.
type ResourceReadWriteFlags uint32

const (
	ReadWriteFlagsNone ResourceReadWriteFlags = 0

	// ReadWriteSyncBefore requests a read/write hazard barrier be emitted
	// even if the resource's sync/access/layout triplet is otherwise
	// unchanged since its last touch (spec.md's "requiresReadWriteBarrier").
	ReadWriteSyncBefore ResourceReadWriteFlags = 1 << 0
)

// Texture2DUsage is a pass's declared access to a Texture2D.
type Texture2DUsage struct {
	Texture  Texture2D
	Access   TextureAccess
	MipLevel uint32
	Flags    ResourceReadWriteFlags
}

// Texture3DUsage is the 3D analog of Texture2DUsage.
type Texture3DUsage struct {
	Texture  Texture3D
	Access   TextureAccess
	MipLevel uint32
	Flags    ResourceReadWriteFlags
}

// BufferUsage is a pass's declared access to a Buffer. StructureSizeInBytes
// selects a typed (structured) view over a raw one for ShaderReadOnly access
// when non-zero; ShaderReadWrite access always gets a raw RWBufferView.
type BufferUsage struct {
	Buffer               Buffer
	Access               BufferAccess
	Flags                ResourceReadWriteFlags
	StructureSizeInBytes uint64
}

// Usage constructors. The original exposes these as free functions
// overloaded by parameter type (Texture2D/Texture3D/Buffer); Go has no free
// function overloading, so the same identifiers are instead methods on each
// resource handle type, with Go's receiver-type dispatch standing in for the
// original's parameter-type overload set.

// ShaderReadOnly declares read-only shader access to t.
func (t Texture2D) ShaderReadOnly() Texture2DUsage {
	return Texture2DUsage{Texture: t, Access: TextureAccessShaderReadOnly}
}

// ShaderReadWrite declares read-write (UAV) shader access to mip level mip.
func (t Texture2D) ShaderReadWrite(mip uint32, flags ResourceReadWriteFlags) Texture2DUsage {
	return Texture2DUsage{Texture: t, Access: TextureAccessShaderReadWrite, MipLevel: mip, Flags: flags}
}

// CopyFrom declares t as a copy source.
func (t Texture2D) CopyFrom() Texture2DUsage {
	return Texture2DUsage{Texture: t, Access: TextureAccessCopySource}
}

// CopyTo declares t as a copy destination.
func (t Texture2D) CopyTo() Texture2DUsage {
	return Texture2DUsage{Texture: t, Access: TextureAccessCopyDest}
}

// Present declares t will be presented; it must be the pass's only access to
// t (invariant enforced during materialization, kind-4 error otherwise).
func (t Texture2D) Present() Texture2DUsage {
	return Texture2DUsage{Texture: t, Access: TextureAccessPresentation}
}

func (t Texture3D) ShaderReadOnly() Texture3DUsage {
	return Texture3DUsage{Texture: t, Access: TextureAccessShaderReadOnly}
}

func (t Texture3D) ShaderReadWrite(mip uint32, flags ResourceReadWriteFlags) Texture3DUsage {
	return Texture3DUsage{Texture: t, Access: TextureAccessShaderReadWrite, MipLevel: mip, Flags: flags}
}

func (t Texture3D) CopyFrom() Texture3DUsage {
	return Texture3DUsage{Texture: t, Access: TextureAccessCopySource}
}

func (t Texture3D) CopyTo() Texture3DUsage {
	return Texture3DUsage{Texture: t, Access: TextureAccessCopyDest}
}

func (b Buffer) ShaderReadOnly() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessShaderReadOnly}
}

// ShaderReadOnlyTyped is ShaderReadOnly over a structured (typed) view
// striped into elementSizeBytes elements, instead of a raw BufferView. Not
// one of spec.md's named constructors, but required by §4.H's "raw
// BufferView if structureSizeInBytes == 0 else TypedBufferView" rule, which
// has no other way to be reached from the public API.
func (b Buffer) ShaderReadOnlyTyped(elementSizeBytes uint64) BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessShaderReadOnly, StructureSizeInBytes: elementSizeBytes}
}

func (b Buffer) ShaderReadWrite(flags ResourceReadWriteFlags) BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessShaderReadWrite, Flags: flags}
}

func (b Buffer) UniformBuffer() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessUniform}
}

func (b Buffer) IndexBuffer() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessIndex}
}

func (b Buffer) DrawIDBuffer() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessDrawID}
}

func (b Buffer) ArgumentBuffer() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessArgument}
}

func (b Buffer) CopyFrom() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessCopySource}
}

func (b Buffer) CopyTo() BufferUsage {
	return BufferUsage{Buffer: b, Access: BufferAccessCopyDest}
}
