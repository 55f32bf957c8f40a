// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import (
	"github.com/gogpu/rendergraph/internal/gpumem"
	"github.com/gogpu/rendergraph/internal/pool"
	"github.com/gogpu/rendergraph/rhi"
)

// textureBarrierState is the sync-stage/access/layout triplet the barrier
// synthesizer tracks per texture, both the previous (already transitioned
// to, as far as the GPU timeline is concerned) and current (accumulated by
// this frame's passes so far) snapshot, per spec.md §4.H step 3.
type textureBarrierState struct {
	prevSync, currSync     rhi.PipelineSyncStage
	prevAccess, currAccess rhi.PipelineAccess
	prevLayout, currLayout rhi.TextureLayout
	lastUpdatedPass        int
	requiresBarrier        bool
}

// bufferBarrierState is textureBarrierState without a layout: buffers have
// no image layout to transition.
type bufferBarrierState struct {
	prevSync, currSync     rhi.PipelineSyncStage
	prevAccess, currAccess rhi.PipelineAccess
	lastUpdatedPass        int
	requiresBarrier        bool
}

// texture2DCold is touched only during Build: declared desc, ownership,
// this frame's lifetime range, accumulated creation flags, and barrier
// state.
type texture2DCold struct {
	desc             Texture2DDesc
	ownership        ownership
	firstUsedPass    int
	lastUsedPass     int
	resolvedWidth    uint32
	resolvedHeight   uint32
	creationFlags    rhi.TextureCreationFlags
	rwViewMipBitmask uint32
	region           gpumem.Region
	barrier          textureBarrierState
}

// texture2DHot is touched on every pass that references the resource: the
// RHI handle, current views, and per-pass access bitsets.
type texture2DHot struct {
	pinnedBacking gpumem.Backing
	handle        rhi.Texture2DHandle
	shaderView    rhi.ViewHandle
	renderView    rhi.ViewHandle
	depthView     rhi.ViewHandle
	rwViews       [MaxRWViews]rhi.ViewHandle

	resourceAccess passBits
	shaderAccess   passBits
	renderAccess   passBits
	depthAccess    passBits
	rwAccess       [MaxRWViews]passBits
}

type texture3DCold struct {
	desc             Texture3DDesc
	ownership        ownership
	firstUsedPass    int
	lastUsedPass     int
	resolvedWidth    uint32
	resolvedHeight   uint32
	creationFlags    rhi.TextureCreationFlags
	rwViewMipBitmask uint32
	region           gpumem.Region
	barrier          textureBarrierState
}

type texture3DHot struct {
	pinnedBacking gpumem.Backing
	handle        rhi.Texture3DHandle
	shaderView    rhi.ViewHandle
	rwViews       [MaxRWViews]rhi.ViewHandle

	resourceAccess passBits
	shaderAccess   passBits
	rwAccess       [MaxRWViews]passBits
}

type bufferCold struct {
	desc          BufferDesc
	ownership     ownership
	firstUsedPass int
	lastUsedPass  int
	creationFlags rhi.BufferCreationFlags
	barrier       bufferBarrierState
}

type bufferHot struct {
	// pinnedBacking and pinnedHandle are set once, on the frame a pinned
	// buffer is first materialized, and never cleared by Reset — the
	// dedicated-allocation path a non-pinned buffer never takes.
	pinnedBacking gpumem.Backing
	pinnedHandle  rhi.BufferHandle

	// resource is the live backing range this frame: either a carved
	// tempbuf ring-slot range (non-pinned) or pinnedHandle's full extent
	// (pinned).
	resource rhi.TemporaryResource

	rawView     rhi.ViewHandle
	typedView   rhi.ViewHandle
	uniformView rhi.ViewHandle
	rwView      rhi.ViewHandle

	resourceAccess passBits
	rawAccess      passBits
	typedAccess    passBits
	uniformAccess  passBits
	rwAccess       passBits
}

// registry is the resource registry (spec component F): three object pools,
// one per resource kind, with no behavior beyond internal/pool itself.
type registry struct {
	textures2D *pool.Pool[texture2DHot, texture2DCold, texture2DMarker]
	textures3D *pool.Pool[texture3DHot, texture3DCold, texture3DMarker]
	buffers    *pool.Pool[bufferHot, bufferCold, bufferMarker]
}

func newRegistry(maxTextures2D, maxTextures3D, maxBuffers uint32) *registry {
	return &registry{
		textures2D: pool.New[texture2DHot, texture2DCold, texture2DMarker](maxTextures2D),
		textures3D: pool.New[texture3DHot, texture3DCold, texture3DMarker](maxTextures3D),
		buffers:    pool.New[bufferHot, bufferCold, bufferMarker](maxBuffers),
	}
}
