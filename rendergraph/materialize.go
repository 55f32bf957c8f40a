// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import (
	"github.com/gogpu/rendergraph/internal/gpumem"
	"github.com/gogpu/rendergraph/rhi"
)

// tempBufAlign is the byte alignment every internal buffer's tempbuf carve
// is rounded up to, generous enough for a structured or uniform view of any
// element size this module's usage constructors accept.
const tempBufAlign = 256

// allocatePassResources is the materializer (spec component H): for every
// pass in declaration order, and for every resource it touches, it creates
// the RHI resource on first use, creates whichever views this pass's
// accesses require and haven't been created yet, folds this pass's accesses
// into the resource's barrier state (component I, barrier.go), and frees an
// internal resource's transient memory once this pass was its last use.
func allocatePassResources(g *Graph) {
	for passIdx, p := range g.passes {
		materializeTexture2DPass(g, passIdx, p)
		materializeTexture3DPass(g, passIdx, p)
		materializeBufferPass(g, passIdx, p)
	}
}

func maxU32(v, floor uint32) uint32 {
	if v == 0 {
		return floor
	}
	return v
}

// ---- Texture2D ----

type tex2DAccum struct {
	h Texture2D

	hasColor bool
	hasDepth bool

	shaderReadOnly  bool
	shaderReadWrite bool
	rwMips          uint32
	copySource      bool
	copyDest        bool
	presentation    bool
	syncBefore      bool
}

// groupTexture2D coalesces every color/depth attachment and Textures2D
// usage this pass declares into one accumulator per distinct resource,
// preserving first-touch order so barrier folding and view creation happen
// in a stable, deterministic sequence.
func groupTexture2D(p *passRecord) ([]Texture2D, map[Texture2D]*tex2DAccum) {
	var order []Texture2D
	m := map[Texture2D]*tex2DAccum{}
	get := func(t Texture2D) *tex2DAccum {
		a, ok := m[t]
		if !ok {
			a = &tex2DAccum{h: t}
			m[t] = a
			order = append(order, t)
		}
		return a
	}

	for _, ca := range p.colorAttachments {
		get(ca.Texture).hasColor = true
	}
	if p.depthAttachment != nil {
		get(p.depthAttachment.Texture).hasDepth = true
	}
	for _, u := range p.textures2D {
		a := get(u.Texture)
		switch u.Access {
		case TextureAccessShaderReadOnly:
			a.shaderReadOnly = true
		case TextureAccessShaderReadWrite:
			a.shaderReadWrite = true
			a.rwMips |= 1 << u.MipLevel
			if u.Flags&ReadWriteSyncBefore != 0 {
				a.syncBefore = true
			}
		case TextureAccessCopySource:
			a.copySource = true
		case TextureAccessCopyDest:
			a.copyDest = true
		case TextureAccessPresentation:
			a.presentation = true
		}
	}
	return order, m
}

// computeTexture2DFold applies each contributing access's texFold in a fixed
// priority order, so a later fold's layout correctly supersedes (or, for
// ShaderReadOnly atop a read-only depth attachment, preserves) an earlier
// one's, per spec.md §4.H.
func computeTexture2DFold(a *tex2DAccum, flags PassFlags) texFold {
	var f texFold
	merge := func(nf texFold) {
		f.stage |= nf.stage
		f.access |= nf.access
		f.layout = nf.layout
	}
	if a.hasColor {
		merge(renderTargetFold())
	}
	if a.hasDepth {
		merge(depthTargetFold(flags))
	}
	if a.shaderReadOnly {
		merge(shaderReadOnlyTextureFold(flags, f.layout))
	}
	if a.shaderReadWrite {
		merge(shaderReadWriteTextureFold(flags))
	}
	if a.copySource {
		merge(copySourceTextureFold())
	}
	if a.copyDest {
		merge(copyDestTextureFold())
	}
	if a.presentation {
		f = presentationTextureFold()
	}
	return f
}

func materializeTexture2DPass(g *Graph, passIdx int, p *passRecord) {
	order, accum := groupTexture2D(p)
	for _, t := range order {
		materializeOneTexture2D(g, passIdx, p, t, accum[t])
	}
}

func materializeOneTexture2D(g *Graph, passIdx int, p *passRecord, t Texture2D, a *tex2DAccum) {
	if a.presentation && (a.hasColor || a.hasDepth || a.shaderReadOnly || a.shaderReadWrite || a.copySource || a.copyDest) {
		abort(KindLifetime, "Graph.Build", t)
	}

	cold, ok := g.reg.textures2D.GetCold(t.h)
	if !ok {
		abort(KindIdentity, "Graph.Build", t)
	}

	if cold.ownership == ownershipInternal && cold.firstUsedPass == passIdx {
		hot, _ := g.reg.textures2D.GetHot(t.h)
		pinned := cold.desc.Flags&ResourceFlagPinned != 0
		if !(pinned && hot.handle != rhi.InvalidTexture2DHandle) {
			rdesc := rhi.Texture2DDesc{
				Width: cold.resolvedWidth, Height: cold.resolvedHeight,
				ArrayLayers: maxU32(cold.desc.ArrayLayers, 1), MipLevels: maxU32(cold.desc.MipLevels, 1),
				Format: cold.desc.Format, CreationFlags: cold.creationFlags, AllocFlags: rhi.GPUAllocDeviceOnly,
				DebugName: cold.desc.Name,
			}
			footprint, err := g.device.CalculateTexture2DFootprint(rdesc)
			if err != nil {
				abortRHI("Graph.Build", t, err)
			}

			var region rhi.GPUMemoryRegion
			var pinnedBacking gpumem.Backing
			var gregion gpumem.Region
			if pinned {
				b, err := g.device.GPUAlloc(footprint.SizeBytes, rhi.GPUAllocDeviceOnly)
				if err != nil {
					abortRHI("Graph.Build", t, err)
				}
				pinnedBacking = b
				region = rhi.GPUMemoryRegion{Backing: b, SizeBytes: footprint.SizeBytes}
			} else {
				r, err := g.transient.AllocateMemoryRegion(footprint.SizeBytes)
				if err != nil {
					abortRHI("Graph.Build", t, err)
				}
				gregion = r
				region = rhi.GPUMemoryRegion{Backing: r.Backing, OffsetBytes: r.OffsetBytes, SizeBytes: r.SizeBytes}
			}

			handle, err := g.device.CreateTexture2D(rdesc, region)
			if err != nil {
				abortRHI("Graph.Build", t, err)
			}
			g.reg.textures2D.MutateHot(t.h, func(h *texture2DHot) {
				h.handle = handle
				if pinned {
					h.pinnedBacking = pinnedBacking
				}
			})
			if !pinned {
				g.reg.textures2D.MutateCold(t.h, func(c *texture2DCold) { c.region = gregion })
			}
		}
	}

	hot, _ := g.reg.textures2D.GetHot(t.h)
	layers := maxU32(cold.desc.ArrayLayers, 1)
	if a.hasColor && hot.renderView == rhi.InvalidViewHandle {
		v, err := g.device.CreateTexture2DRenderTargetView(hot.handle, rhi.Texture2DViewDesc{MipLevelCount: 1, ArrayLayerCount: layers})
		if err != nil {
			abortRHI("Graph.Build", t, err)
		}
		g.reg.textures2D.MutateHot(t.h, func(h *texture2DHot) { h.renderView = v })
	}
	if a.hasDepth && hot.depthView == rhi.InvalidViewHandle {
		v, err := g.device.CreateTexture2DDepthStencilView(hot.handle, rhi.Texture2DViewDesc{MipLevelCount: 1, ArrayLayerCount: layers})
		if err != nil {
			abortRHI("Graph.Build", t, err)
		}
		g.reg.textures2D.MutateHot(t.h, func(h *texture2DHot) { h.depthView = v })
	}
	if a.shaderReadOnly && hot.shaderView == rhi.InvalidViewHandle {
		v, err := g.device.CreateTexture2DShaderView(hot.handle, rhi.Texture2DViewDesc{MipLevelCount: maxU32(cold.desc.MipLevels, 1), ArrayLayerCount: layers})
		if err != nil {
			abortRHI("Graph.Build", t, err)
		}
		g.reg.textures2D.MutateHot(t.h, func(h *texture2DHot) { h.shaderView = v })
	}
	if a.shaderReadWrite {
		for mip := 0; mip < MaxRWViews; mip++ {
			if a.rwMips&(1<<uint(mip)) == 0 || hot.rwViews[mip] != rhi.InvalidViewHandle {
				continue
			}
			v, err := g.device.CreateTexture2DStorageView(hot.handle, rhi.Texture2DViewDesc{BaseMipLevel: uint32(mip), MipLevelCount: 1, ArrayLayerCount: layers})
			if err != nil {
				abortRHI("Graph.Build", t, err)
			}
			mip := mip
			g.reg.textures2D.MutateHot(t.h, func(h *texture2DHot) { h.rwViews[mip] = v })
		}
	}

	touched := a.hasColor || a.hasDepth || a.shaderReadOnly || a.shaderReadWrite || a.copySource || a.copyDest || a.presentation
	g.reg.textures2D.MutateHot(t.h, func(h *texture2DHot) {
		if touched {
			h.resourceAccess.set(passIdx)
		}
		if a.hasColor {
			h.renderAccess.set(passIdx)
		}
		if a.hasDepth {
			h.depthAccess.set(passIdx)
		}
		if a.shaderReadOnly {
			h.shaderAccess.set(passIdx)
		}
		for mip := 0; mip < MaxRWViews; mip++ {
			if a.rwMips&(1<<uint(mip)) != 0 {
				h.rwAccess[mip].set(passIdx)
			}
		}
	})

	fold := computeTexture2DFold(a, p.flags)
	var emit bool
	var snapshot textureBarrierState
	g.reg.textures2D.MutateCold(t.h, func(c *texture2DCold) {
		c.barrier.beginPass(passIdx)
		c.barrier.apply(fold, a.syncBefore)
		emit = c.barrier.needsBarrier()
		snapshot = c.barrier
	})

	if emit {
		hot, _ := g.reg.textures2D.GetHot(t.h)
		p.tex2DBarriers = append(p.tex2DBarriers, rhi.Texture2DBarrier{
			Texture:      hot.handle,
			Range:        rhi.TextureRange{MipLevelCount: maxU32(cold.desc.MipLevels, 1), ArrayLayerCount: layers},
			SyncBefore:   snapshot.prevSync, SyncAfter: snapshot.currSync,
			AccessBefore: snapshot.prevAccess, AccessAfter: snapshot.currAccess,
			LayoutBefore: snapshot.prevLayout, LayoutAfter: snapshot.currLayout,
		})
	}

	if cold.ownership == ownershipInternal && cold.desc.Flags&ResourceFlagPinned == 0 && cold.lastUsedPass == passIdx {
		fresh, _ := g.reg.textures2D.GetCold(t.h)
		if fresh.region.SizeBytes > 0 {
			if err := g.transient.FreeMemoryRegion(fresh.region); err != nil {
				abortRHI("Graph.Build", t, err)
			}
			g.reg.textures2D.MutateCold(t.h, func(c *texture2DCold) { c.region = gpumem.Region{} })
		}
	}
}

// ---- Texture3D ----

type tex3DAccum struct {
	h Texture3D

	shaderReadOnly  bool
	shaderReadWrite bool
	rwMips          uint32
	copySource      bool
	copyDest        bool
	presentation    bool
	syncBefore      bool
}

func groupTexture3D(p *passRecord) ([]Texture3D, map[Texture3D]*tex3DAccum) {
	var order []Texture3D
	m := map[Texture3D]*tex3DAccum{}
	get := func(t Texture3D) *tex3DAccum {
		a, ok := m[t]
		if !ok {
			a = &tex3DAccum{h: t}
			m[t] = a
			order = append(order, t)
		}
		return a
	}
	for _, u := range p.textures3D {
		a := get(u.Texture)
		switch u.Access {
		case TextureAccessShaderReadOnly:
			a.shaderReadOnly = true
		case TextureAccessShaderReadWrite:
			a.shaderReadWrite = true
			a.rwMips |= 1 << u.MipLevel
			if u.Flags&ReadWriteSyncBefore != 0 {
				a.syncBefore = true
			}
		case TextureAccessCopySource:
			a.copySource = true
		case TextureAccessCopyDest:
			a.copyDest = true
		case TextureAccessPresentation:
			a.presentation = true
		}
	}
	return order, m
}

func computeTexture3DFold(a *tex3DAccum, flags PassFlags) texFold {
	var f texFold
	merge := func(nf texFold) {
		f.stage |= nf.stage
		f.access |= nf.access
		f.layout = nf.layout
	}
	if a.shaderReadOnly {
		merge(shaderReadOnlyTextureFold(flags, f.layout))
	}
	if a.shaderReadWrite {
		merge(shaderReadWriteTextureFold(flags))
	}
	if a.copySource {
		merge(copySourceTextureFold())
	}
	if a.copyDest {
		merge(copyDestTextureFold())
	}
	if a.presentation {
		f = presentationTextureFold()
	}
	return f
}

func materializeTexture3DPass(g *Graph, passIdx int, p *passRecord) {
	order, accum := groupTexture3D(p)
	for _, t := range order {
		materializeOneTexture3D(g, passIdx, p, t, accum[t])
	}
}

func materializeOneTexture3D(g *Graph, passIdx int, p *passRecord, t Texture3D, a *tex3DAccum) {
	if a.presentation && (a.shaderReadOnly || a.shaderReadWrite || a.copySource || a.copyDest) {
		abort(KindLifetime, "Graph.Build", t)
	}

	cold, ok := g.reg.textures3D.GetCold(t.h)
	if !ok {
		abort(KindIdentity, "Graph.Build", t)
	}

	if cold.ownership == ownershipInternal && cold.firstUsedPass == passIdx {
		hot, _ := g.reg.textures3D.GetHot(t.h)
		pinned := cold.desc.Flags&ResourceFlagPinned != 0
		if !(pinned && hot.handle != rhi.InvalidTexture3DHandle) {
			rdesc := rhi.Texture3DDesc{
				Width: cold.resolvedWidth, Height: cold.resolvedHeight, Depth: cold.desc.Depth,
				MipLevels: maxU32(cold.desc.MipLevels, 1), Format: cold.desc.Format,
				CreationFlags: cold.creationFlags, AllocFlags: rhi.GPUAllocDeviceOnly, DebugName: cold.desc.Name,
			}
			footprint, err := g.device.CalculateTexture3DFootprint(rdesc)
			if err != nil {
				abortRHI("Graph.Build", t, err)
			}

			var region rhi.GPUMemoryRegion
			var pinnedBacking gpumem.Backing
			var gregion gpumem.Region
			if pinned {
				b, err := g.device.GPUAlloc(footprint.SizeBytes, rhi.GPUAllocDeviceOnly)
				if err != nil {
					abortRHI("Graph.Build", t, err)
				}
				pinnedBacking = b
				region = rhi.GPUMemoryRegion{Backing: b, SizeBytes: footprint.SizeBytes}
			} else {
				r, err := g.transient.AllocateMemoryRegion(footprint.SizeBytes)
				if err != nil {
					abortRHI("Graph.Build", t, err)
				}
				gregion = r
				region = rhi.GPUMemoryRegion{Backing: r.Backing, OffsetBytes: r.OffsetBytes, SizeBytes: r.SizeBytes}
			}

			handle, err := g.device.CreateTexture3D(rdesc, region)
			if err != nil {
				abortRHI("Graph.Build", t, err)
			}
			g.reg.textures3D.MutateHot(t.h, func(h *texture3DHot) {
				h.handle = handle
				if pinned {
					h.pinnedBacking = pinnedBacking
				}
			})
			if !pinned {
				g.reg.textures3D.MutateCold(t.h, func(c *texture3DCold) { c.region = gregion })
			}
		}
	}

	hot, _ := g.reg.textures3D.GetHot(t.h)
	if a.shaderReadOnly && hot.shaderView == rhi.InvalidViewHandle {
		v, err := g.device.CreateTexture3DShaderView(hot.handle, rhi.Texture3DViewDesc{DepthSliceCount: cold.desc.Depth})
		if err != nil {
			abortRHI("Graph.Build", t, err)
		}
		g.reg.textures3D.MutateHot(t.h, func(h *texture3DHot) { h.shaderView = v })
	}
	if a.shaderReadWrite {
		for mip := 0; mip < MaxRWViews; mip++ {
			if a.rwMips&(1<<uint(mip)) == 0 || hot.rwViews[mip] != rhi.InvalidViewHandle {
				continue
			}
			v, err := g.device.CreateTexture3DStorageView(hot.handle, rhi.Texture3DViewDesc{MipLevel: uint32(mip), DepthSliceCount: cold.desc.Depth})
			if err != nil {
				abortRHI("Graph.Build", t, err)
			}
			mip := mip
			g.reg.textures3D.MutateHot(t.h, func(h *texture3DHot) { h.rwViews[mip] = v })
		}
	}

	touched := a.shaderReadOnly || a.shaderReadWrite || a.copySource || a.copyDest || a.presentation
	g.reg.textures3D.MutateHot(t.h, func(h *texture3DHot) {
		if touched {
			h.resourceAccess.set(passIdx)
		}
		if a.shaderReadOnly {
			h.shaderAccess.set(passIdx)
		}
		for mip := 0; mip < MaxRWViews; mip++ {
			if a.rwMips&(1<<uint(mip)) != 0 {
				h.rwAccess[mip].set(passIdx)
			}
		}
	})

	fold := computeTexture3DFold(a, p.flags)
	var emit bool
	var snapshot textureBarrierState
	g.reg.textures3D.MutateCold(t.h, func(c *texture3DCold) {
		c.barrier.beginPass(passIdx)
		c.barrier.apply(fold, a.syncBefore)
		emit = c.barrier.needsBarrier()
		snapshot = c.barrier
	})

	if emit {
		hot, _ := g.reg.textures3D.GetHot(t.h)
		p.tex3DBarriers = append(p.tex3DBarriers, rhi.Texture3DBarrier{
			Texture:      hot.handle,
			Range:        rhi.Texture3DRange{MipLevelCount: maxU32(cold.desc.MipLevels, 1)},
			SyncBefore:   snapshot.prevSync, SyncAfter: snapshot.currSync,
			AccessBefore: snapshot.prevAccess, AccessAfter: snapshot.currAccess,
			LayoutBefore: snapshot.prevLayout, LayoutAfter: snapshot.currLayout,
		})
	}

	if cold.ownership == ownershipInternal && cold.desc.Flags&ResourceFlagPinned == 0 && cold.lastUsedPass == passIdx {
		fresh, _ := g.reg.textures3D.GetCold(t.h)
		if fresh.region.SizeBytes > 0 {
			if err := g.transient.FreeMemoryRegion(fresh.region); err != nil {
				abortRHI("Graph.Build", t, err)
			}
			g.reg.textures3D.MutateCold(t.h, func(c *texture3DCold) { c.region = gpumem.Region{} })
		}
	}
}

// ---- Buffer ----

type bufAccum struct {
	h Buffer

	shaderReadOnly  bool
	typedElemSize   uint64
	shaderReadWrite bool
	uniform         bool
	index           bool
	drawID          bool
	argument        bool
	copySource      bool
	copyDest        bool
	syncBefore      bool
}

func groupBuffer(p *passRecord) ([]Buffer, map[Buffer]*bufAccum) {
	var order []Buffer
	m := map[Buffer]*bufAccum{}
	get := func(b Buffer) *bufAccum {
		a, ok := m[b]
		if !ok {
			a = &bufAccum{h: b}
			m[b] = a
			order = append(order, b)
		}
		return a
	}
	for _, u := range p.buffers {
		a := get(u.Buffer)
		switch u.Access {
		case BufferAccessShaderReadOnly:
			a.shaderReadOnly = true
			if u.StructureSizeInBytes > a.typedElemSize {
				a.typedElemSize = u.StructureSizeInBytes
			}
		case BufferAccessShaderReadWrite:
			a.shaderReadWrite = true
			if u.Flags&ReadWriteSyncBefore != 0 {
				a.syncBefore = true
			}
		case BufferAccessUniform:
			a.uniform = true
		case BufferAccessIndex:
			a.index = true
		case BufferAccessDrawID:
			a.drawID = true
		case BufferAccessArgument:
			a.argument = true
		case BufferAccessCopySource:
			a.copySource = true
		case BufferAccessCopyDest:
			a.copyDest = true
		}
	}
	return order, m
}

func computeBufferFold(a *bufAccum, flags PassFlags) bufFold {
	var f bufFold
	merge := func(kind BufferAccess) {
		nf := bufferAccessFold(kind, flags)
		f.stage |= nf.stage
		f.access |= nf.access
	}
	if a.shaderReadOnly {
		merge(BufferAccessShaderReadOnly)
	}
	if a.shaderReadWrite {
		merge(BufferAccessShaderReadWrite)
	}
	if a.uniform {
		merge(BufferAccessUniform)
	}
	if a.index {
		merge(BufferAccessIndex)
	}
	if a.drawID {
		merge(BufferAccessDrawID)
	}
	if a.argument {
		merge(BufferAccessArgument)
	}
	if a.copySource {
		merge(BufferAccessCopySource)
	}
	if a.copyDest {
		merge(BufferAccessCopyDest)
	}
	return f
}

func materializeBufferPass(g *Graph, passIdx int, p *passRecord) {
	order, accum := groupBuffer(p)
	for _, b := range order {
		materializeOneBuffer(g, passIdx, p, b, accum[b])
	}
}

func materializeOneBuffer(g *Graph, passIdx int, p *passRecord, b Buffer, a *bufAccum) {
	cold, ok := g.reg.buffers.GetCold(b.h)
	if !ok {
		abort(KindIdentity, "Graph.Build", b)
	}

	if cold.ownership == ownershipInternal && cold.firstUsedPass == passIdx {
		pinned := cold.desc.Flags&ResourceFlagPinned != 0
		if pinned {
			hot, _ := g.reg.buffers.GetHot(b.h)
			if hot.pinnedHandle == rhi.InvalidBufferHandle {
				backing, err := g.device.GPUAlloc(cold.desc.SizeBytes, rhi.GPUAllocDeviceOnly)
				if err != nil {
					abortRHI("Graph.Build", b, err)
				}
				handle, err := g.device.CreateBuffer(
					rhi.BufferDesc{SizeBytes: cold.desc.SizeBytes, CreationFlags: cold.creationFlags, AllocFlags: rhi.GPUAllocDeviceOnly, DebugName: cold.desc.Name},
					rhi.GPUMemoryRegion{Backing: backing, SizeBytes: cold.desc.SizeBytes},
				)
				if err != nil {
					abortRHI("Graph.Build", b, err)
				}
				g.reg.buffers.MutateHot(b.h, func(h *bufferHot) {
					h.pinnedBacking = backing
					h.pinnedHandle = handle
				})
			}
			g.reg.buffers.MutateHot(b.h, func(h *bufferHot) {
				h.resource = rhi.TemporaryResource{Buffer: h.pinnedHandle, SizeBytes: cold.desc.SizeBytes}
			})
		} else {
			alloc, err := g.tempBufs.Allocate(cold.desc.SizeBytes, tempBufAlign)
			if err != nil {
				abortRHI("Graph.Build", b, err)
			}
			g.reg.buffers.MutateHot(b.h, func(h *bufferHot) {
				h.resource = rhi.TemporaryResource{
					Buffer:      alloc.Buffer.(rhi.BufferHandle),
					OffsetBytes: alloc.OffsetBytes,
					SizeBytes:   alloc.SizeBytes,
					CPU:         alloc.CPU,
				}
			})
		}
	}

	hot, _ := g.reg.buffers.GetHot(b.h)
	viewDesc := rhi.BufferViewDesc{OffsetBytes: hot.resource.OffsetBytes, SizeBytes: hot.resource.SizeBytes}
	if a.shaderReadOnly {
		if a.typedElemSize > 0 {
			if hot.typedView == rhi.InvalidViewHandle {
				v, err := g.device.CreateTypedBufferView(hot.resource.Buffer, rhi.TypedBufferViewDesc{
					OffsetBytes: hot.resource.OffsetBytes, ElementSizeBytes: a.typedElemSize,
					ElementCount: hot.resource.SizeBytes / a.typedElemSize,
				})
				if err != nil {
					abortRHI("Graph.Build", b, err)
				}
				g.reg.buffers.MutateHot(b.h, func(h *bufferHot) { h.typedView = v })
			}
		} else if hot.rawView == rhi.InvalidViewHandle {
			v, err := g.device.CreateBufferView(hot.resource.Buffer, viewDesc)
			if err != nil {
				abortRHI("Graph.Build", b, err)
			}
			g.reg.buffers.MutateHot(b.h, func(h *bufferHot) { h.rawView = v })
		}
	}
	if a.uniform && hot.uniformView == rhi.InvalidViewHandle {
		v, err := g.device.CreateUniformBufferView(hot.resource.Buffer, viewDesc)
		if err != nil {
			abortRHI("Graph.Build", b, err)
		}
		g.reg.buffers.MutateHot(b.h, func(h *bufferHot) { h.uniformView = v })
	}
	if a.shaderReadWrite && hot.rwView == rhi.InvalidViewHandle {
		v, err := g.device.CreateRWBufferView(hot.resource.Buffer, viewDesc)
		if err != nil {
			abortRHI("Graph.Build", b, err)
		}
		g.reg.buffers.MutateHot(b.h, func(h *bufferHot) { h.rwView = v })
	}

	touched := a.shaderReadOnly || a.shaderReadWrite || a.uniform || a.index || a.drawID || a.argument || a.copySource || a.copyDest
	g.reg.buffers.MutateHot(b.h, func(h *bufferHot) {
		if touched {
			h.resourceAccess.set(passIdx)
		}
		if a.shaderReadOnly && a.typedElemSize == 0 {
			h.rawAccess.set(passIdx)
		}
		if a.shaderReadOnly && a.typedElemSize > 0 {
			h.typedAccess.set(passIdx)
		}
		if a.uniform {
			h.uniformAccess.set(passIdx)
		}
		if a.shaderReadWrite {
			h.rwAccess.set(passIdx)
		}
	})

	fold := computeBufferFold(a, p.flags)
	var emit bool
	var snapshot bufferBarrierState
	g.reg.buffers.MutateCold(b.h, func(c *bufferCold) {
		c.barrier.beginPass(passIdx)
		c.barrier.apply(fold, a.syncBefore)
		emit = c.barrier.needsBarrier()
		snapshot = c.barrier
	})

	if emit {
		hot, _ := g.reg.buffers.GetHot(b.h)
		p.bufferBarriers = append(p.bufferBarriers, rhi.BufferBarrier{
			Buffer: hot.resource.Buffer, OffsetBytes: hot.resource.OffsetBytes, SizeBytes: hot.resource.SizeBytes,
			SyncBefore: snapshot.prevSync, SyncAfter: snapshot.currSync,
			AccessBefore: snapshot.prevAccess, AccessAfter: snapshot.currAccess,
		})
	}
}
