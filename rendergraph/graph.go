// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package rendergraph implements a declarative, per-frame GPU render graph:
// pass construction, transient memory allocation, barrier synthesis,
// resource materialization, and single- or multi-threaded execution against
// an injected rhi.Device. See SPEC_FULL.md for the full component design.
package rendergraph

import (
	"context"

	"github.com/gogpu/rendergraph/internal/arena"
	"github.com/gogpu/rendergraph/internal/gpumem"
	"github.com/gogpu/rendergraph/internal/handle"
	"github.com/gogpu/rendergraph/internal/schedule"
	"github.com/gogpu/rendergraph/internal/tempbuf"
	"github.com/gogpu/rendergraph/rhi"
)

// Options configures a Graph's fixed capacities, constructed once and
// passed to New, matching the teacher's Descriptor-struct-at-construction
// convention (hal/descriptor.go's InstanceDescriptor/Capabilities) rather
// than a config file or environment variables — the graph is a library, not
// a service.
type Options struct {
	MaxTextures2D uint32
	MaxTextures3D uint32
	MaxBuffers    uint32

	// MaxPasses bounds Build's pass list; must not exceed
	// MaxRenderPassCount.
	MaxPasses int

	// ScratchBytes sizes the per-frame bump arena backing pass-descriptor
	// copies.
	ScratchBytes int

	// PagesPerBacking sizes each transient memory backing allocation, in
	// gpumem.PageSize units.
	PagesPerBacking uint32

	// TempBufLatency is the temporary buffer allocator's ring depth.
	TempBufLatency int
	// TempBufSlotBytes sizes each ring slot.
	TempBufSlotBytes uint64

	// Workers sizes the parallel-execute worker pool; 0 defaults to
	// runtime.GOMAXPROCS(0) (internal/schedule.New's own default).
	Workers int
}

// DefaultOptions returns sensible capacities for a single-window game/engine
// frame graph.
func DefaultOptions() Options {
	return Options{
		MaxTextures2D:    256,
		MaxTextures3D:    32,
		MaxBuffers:       256,
		MaxPasses:        MaxRenderPassCount,
		ScratchBytes:     4 << 20,
		PagesPerBacking:  64, // 64 * 64KiB = 4MiB per backing
		TempBufLatency:   3,
		TempBufSlotBytes: 16 << 20,
	}
}

type graphState uint8

const (
	stateClosed graphState = iota
	stateOpen
)

func (s graphState) String() string {
	if s == stateOpen {
		return "open"
	}
	return "closed"
}

// Graph is the render graph itself. Its public methods are only legal in
// specific states, per spec.md's state machine:
// Closed -> Reset -> Open -> (Allocate|Register|AddRenderPass)* -> Build ->
// Closed -> Execute -> Closed.
type Graph struct {
	device rhi.Device
	opts   Options

	reg       *registry
	transient *gpumem.Allocator
	tempBufs  *tempbuf.Allocator
	scratch   *arena.Arena
	workers   *schedule.Pool

	frameIndex uint64
	state      graphState
	built      bool

	viewportStack [MaxViewportStackDepth]rhi.Viewport
	viewportTop   int

	passes []*passRecord
}

// New constructs a Graph over device, eagerly creating its transient memory
// allocator's first backing and its temporary buffer allocator's ring
// slots — both RHI calls, so New itself can abort with a kind-6 error.
func New(device rhi.Device, opts Options) *Graph {
	transient, err := gpumem.New(opts.PagesPerBacking,
		func(size uint64) (gpumem.Backing, error) { return device.GPUAlloc(size, rhi.GPUAllocDeviceOnly) },
		func(b gpumem.Backing) { device.GPUFree(b) },
	)
	if err != nil {
		abortRHI("rendergraph.New", "transient allocator", err)
	}

	tempBufs, err := tempbuf.New(opts.TempBufLatency, opts.TempBufSlotBytes,
		func(size uint64) (tempbuf.HostBuffer, []byte, error) {
			backing, err := device.GPUAlloc(size, rhi.GPUAllocHostUpload)
			if err != nil {
				return nil, nil, err
			}
			buf, err := device.CreateBuffer(
				rhi.BufferDesc{SizeBytes: size, AllocFlags: rhi.GPUAllocHostUpload, DebugName: "rendergraph.tempbuf"},
				rhi.GPUMemoryRegion{Backing: backing, SizeBytes: size},
			)
			if err != nil {
				return nil, nil, err
			}
			cpu, err := device.MapBuffer(buf)
			if err != nil {
				return nil, nil, err
			}
			return buf, cpu, nil
		},
	)
	if err != nil {
		abortRHI("rendergraph.New", "temporary buffer allocator", err)
	}

	return &Graph{
		device:     device,
		opts:       opts,
		reg:        newRegistry(opts.MaxTextures2D, opts.MaxTextures3D, opts.MaxBuffers),
		transient:  transient,
		tempBufs:   tempBufs,
		scratch:    arena.New(opts.ScratchBytes),
		workers:    schedule.New(opts.Workers),
		frameIndex: ^uint64(0), // Reset's first increment wraps to 0
		viewportTop: 0,
	}
}

func (g *Graph) requireOpen(op string) {
	if g.state != stateOpen {
		abort(KindStructural, op, g.state)
	}
}

// Reset closes out the previous frame (destroying non-pinned resources'
// views and RHI handles, per spec.md's ownership model) and opens the graph
// for a new frame's declarations.
func (g *Graph) Reset(viewport rhi.Viewport) {
	if g.state != stateClosed {
		abort(KindStructural, "Graph.Reset", g.state)
	}

	g.destroyPerFrameResources()

	g.scratch.Reset()
	g.frameIndex++
	g.tempBufs.Flush(g.frameIndex)

	g.viewportTop = 0
	g.viewportStack[0] = viewport

	g.passes = g.passes[:0]
	g.state = stateOpen
	g.built = false
}

// destroyPerFrameResources always destroys every live view (recreated
// lazily next time a pass references the resource) and destroys the RHI
// resource itself only for internal, non-pinned resources — pinned
// resources and registered externals keep their RHI handle across Reset.
// Barrier sync/access/layout state is deliberately left untouched (its
// "current" value carries forward as the next frame's "previous" GPU state,
// load-bearing for pinned/external resources reused across frames), but
// barrier.lastUpdatedPass is reset to the sentinel -1: a raw pass index is
// not unique across frames (a pinned resource used at pass 0 every frame
// would otherwise see beginPass's "already begun this pass" guard misfire on
// the new frame's own pass 0, leaving prevSync/prevLayout stale and
// access/stage bits accumulating unbounded across frames instead of
// resetting per pass).
func (g *Graph) destroyPerFrameResources() {
	g.reg.textures2D.ForEach(func(_ handle.Handle[texture2DMarker], hot *texture2DHot, cold *texture2DCold) bool {
		g.destroyTexture2DViews(hot)
		if cold.ownership == ownershipInternal && cold.desc.Flags&ResourceFlagPinned == 0 {
			if hot.handle != rhi.InvalidTexture2DHandle {
				g.device.DestroyTexture2D(hot.handle)
				hot.handle = rhi.InvalidTexture2DHandle
			}
		}
		cold.firstUsedPass, cold.lastUsedPass = -1, -1
		cold.creationFlags = 0
		cold.rwViewMipBitmask = 0
		cold.resolvedWidth, cold.resolvedHeight = 0, 0
		cold.barrier.lastUpdatedPass = -1
		clearTexture2DAccess(hot)
		return true
	})

	g.reg.textures3D.ForEach(func(_ handle.Handle[texture3DMarker], hot *texture3DHot, cold *texture3DCold) bool {
		g.destroyTexture3DViews(hot)
		if cold.ownership == ownershipInternal && cold.desc.Flags&ResourceFlagPinned == 0 {
			if hot.handle != rhi.InvalidTexture3DHandle {
				g.device.DestroyTexture3D(hot.handle)
				hot.handle = rhi.InvalidTexture3DHandle
			}
		}
		cold.firstUsedPass, cold.lastUsedPass = -1, -1
		cold.creationFlags = 0
		cold.barrier.lastUpdatedPass = -1
		cold.rwViewMipBitmask = 0
		cold.resolvedWidth, cold.resolvedHeight = 0, 0
		clearTexture3DAccess(hot)
		return true
	})

	g.reg.buffers.ForEach(func(_ handle.Handle[bufferMarker], hot *bufferHot, cold *bufferCold) bool {
		g.destroyBufferViews(hot)
		// Non-pinned buffers never own an RHI handle of their own: they
		// borrow a byte range of a tempbuf ring slot, which outlives every
		// individual frame on its own schedule. Pinned buffers keep
		// hot.pinnedHandle across Reset, same as pinned textures.
		cold.firstUsedPass, cold.lastUsedPass = -1, -1
		cold.creationFlags = 0
		cold.barrier.lastUpdatedPass = -1
		clearBufferAccess(hot)
		return true
	})
}

// clearTexture2DAccess/clearTexture3DAccess/clearBufferAccess wipe every
// per-pass access bitset a resource's hot data carries. These bits are keyed
// by this *frame's* pass index (reused 0..N-1 every frame), so they must be
// cleared every Reset regardless of ownership or Pinned status — otherwise a
// stale bit set by a previous frame's pass at the same index would let
// PassExecutionContext.Resolve* succeed for an access this frame's pass never
// declared.
func clearTexture2DAccess(hot *texture2DHot) {
	hot.resourceAccess.clear()
	hot.shaderAccess.clear()
	hot.renderAccess.clear()
	hot.depthAccess.clear()
	for i := range hot.rwAccess {
		hot.rwAccess[i].clear()
	}
}

func clearTexture3DAccess(hot *texture3DHot) {
	hot.resourceAccess.clear()
	hot.shaderAccess.clear()
	for i := range hot.rwAccess {
		hot.rwAccess[i].clear()
	}
}

func clearBufferAccess(hot *bufferHot) {
	hot.resourceAccess.clear()
	hot.rawAccess.clear()
	hot.typedAccess.clear()
	hot.uniformAccess.clear()
	hot.rwAccess.clear()
}

func (g *Graph) destroyTexture2DViews(hot *texture2DHot) {
	destroyView(g.device, &hot.shaderView)
	destroyView(g.device, &hot.renderView)
	destroyView(g.device, &hot.depthView)
	for i := range hot.rwViews {
		destroyView(g.device, &hot.rwViews[i])
	}
}

func (g *Graph) destroyTexture3DViews(hot *texture3DHot) {
	destroyView(g.device, &hot.shaderView)
	for i := range hot.rwViews {
		destroyView(g.device, &hot.rwViews[i])
	}
}

func (g *Graph) destroyBufferViews(hot *bufferHot) {
	destroyView(g.device, &hot.rawView)
	destroyView(g.device, &hot.typedView)
	destroyView(g.device, &hot.uniformView)
	destroyView(g.device, &hot.rwView)
}

func destroyView(device rhi.Device, v *rhi.ViewHandle) {
	if *v != rhi.InvalidViewHandle {
		device.DestroyView(*v)
		*v = rhi.InvalidViewHandle
	}
}

// AllocateTexture2D declares an internal 2D texture the graph creates and
// owns.
func (g *Graph) AllocateTexture2D(desc Texture2DDesc) Texture2D {
	g.requireOpen("Graph.AllocateTexture2D")
	h, ok := g.reg.textures2D.Store(texture2DHot{}, texture2DCold{
		desc: desc, ownership: ownershipInternal, firstUsedPass: -1, lastUsedPass: -1,
		barrier: textureBarrierState{lastUpdatedPass: -1},
	})
	if !ok {
		abort(KindCapacity, "Graph.AllocateTexture2D", desc.Name)
	}
	return Texture2D{h: h}
}

// AllocateTexture3D declares an internal volumetric texture.
func (g *Graph) AllocateTexture3D(desc Texture3DDesc) Texture3D {
	g.requireOpen("Graph.AllocateTexture3D")
	h, ok := g.reg.textures3D.Store(texture3DHot{}, texture3DCold{
		desc: desc, ownership: ownershipInternal, firstUsedPass: -1, lastUsedPass: -1,
		barrier: textureBarrierState{lastUpdatedPass: -1},
	})
	if !ok {
		abort(KindCapacity, "Graph.AllocateTexture3D", desc.Name)
	}
	return Texture3D{h: h}
}

// AllocateBuffer declares an internal buffer.
func (g *Graph) AllocateBuffer(desc BufferDesc) Buffer {
	g.requireOpen("Graph.AllocateBuffer")
	h, ok := g.reg.buffers.Store(bufferHot{}, bufferCold{
		desc: desc, ownership: ownershipInternal, firstUsedPass: -1, lastUsedPass: -1,
		barrier: bufferBarrierState{lastUpdatedPass: -1},
	})
	if !ok {
		abort(KindCapacity, "Graph.AllocateBuffer", desc.Name)
	}
	return Buffer{h: h}
}

// RegisterTexture2D wraps an externally owned RHI texture. The graph
// creates views over it as passes require but never creates or destroys the
// underlying RHI resource.
func (g *Graph) RegisterTexture2D(desc Texture2DRegistrationDesc) Texture2D {
	g.requireOpen("Graph.RegisterTexture2D")
	h, ok := g.reg.textures2D.Store(
		texture2DHot{handle: desc.Handle},
		texture2DCold{
			desc: Texture2DDesc{
				Width: desc.Width, Height: desc.Height, ArrayLayers: desc.ArrayLayers,
				MipLevels: desc.MipLevels, Format: desc.Format, Clear: desc.Clear, Name: desc.Name,
			},
			ownership: ownershipExternal, firstUsedPass: -1, lastUsedPass: -1,
			barrier:   textureBarrierState{lastUpdatedPass: -1},
		},
	)
	if !ok {
		abort(KindCapacity, "Graph.RegisterTexture2D", desc.Name)
	}
	return Texture2D{h: h}
}

// RegisterTexture3D wraps an externally owned volumetric RHI texture.
func (g *Graph) RegisterTexture3D(desc Texture3DRegistrationDesc) Texture3D {
	g.requireOpen("Graph.RegisterTexture3D")
	h, ok := g.reg.textures3D.Store(
		texture3DHot{handle: desc.Handle},
		texture3DCold{
			desc: Texture3DDesc{
				Width: desc.Width, Height: desc.Height, Depth: desc.Depth,
				MipLevels: desc.MipLevels, Format: desc.Format, Name: desc.Name,
			},
			ownership: ownershipExternal, firstUsedPass: -1, lastUsedPass: -1,
			barrier:   textureBarrierState{lastUpdatedPass: -1},
		},
	)
	if !ok {
		abort(KindCapacity, "Graph.RegisterTexture3D", desc.Name)
	}
	return Texture3D{h: h}
}

// RegisterBuffer wraps an externally owned RHI buffer.
func (g *Graph) RegisterBuffer(desc BufferRegistrationDesc) Buffer {
	g.requireOpen("Graph.RegisterBuffer")
	h, ok := g.reg.buffers.Store(
		bufferHot{resource: rhi.TemporaryResource{Buffer: desc.Handle, SizeBytes: desc.SizeBytes}},
		bufferCold{
			desc:      BufferDesc{SizeBytes: desc.SizeBytes, Name: desc.Name},
			ownership: ownershipExternal, firstUsedPass: -1, lastUsedPass: -1,
			barrier:   bufferBarrierState{lastUpdatedPass: -1},
		},
	)
	if !ok {
		abort(KindCapacity, "Graph.RegisterBuffer", desc.Name)
	}
	return Buffer{h: h}
}

// PushViewport pushes v onto the viewport stack; subsequent passes record
// against it until the matching PopViewport.
func (g *Graph) PushViewport(v rhi.Viewport) {
	g.requireOpen("Graph.PushViewport")
	if g.viewportTop+1 >= MaxViewportStackDepth {
		abort(KindCapacity, "Graph.PushViewport", g.viewportTop)
	}
	g.viewportTop++
	g.viewportStack[g.viewportTop] = v
}

// PopViewport restores the viewport active before the matching
// PushViewport.
func (g *Graph) PopViewport() {
	g.requireOpen("Graph.PopViewport")
	if g.viewportTop <= 0 {
		abort(KindLifetime, "Graph.PopViewport", g.viewportTop)
	}
	g.viewportTop--
}

// CurrentViewport returns the viewport active for the next AddRenderPass
// call.
func (g *Graph) CurrentViewport() rhi.Viewport {
	return g.viewportStack[g.viewportTop]
}

// AddRenderPass declares a pass, copying its usage lists into the graph's
// per-frame scratch arena. data's lifetime must extend through Execute; the
// graph never copies it.
func AddRenderPass[T any](g *Graph, desc RenderPassDesc[T], data *T) {
	g.requireOpen("AddRenderPass")
	if len(g.passes) >= g.opts.MaxPasses {
		abort(KindCapacity, "AddRenderPass", len(g.passes))
	}

	var depthAttachment *TextureAttachment
	if desc.DepthAttachment != nil {
		da := arena.AllocateSlice[TextureAttachment](g.scratch, 1)
		da[0] = *desc.DepthAttachment
		depthAttachment = &da[0]
	}

	rec := &passRecord{
		name:             desc.Name,
		flags:            desc.Flags,
		colorAttachments: copyToArena(g.scratch, desc.ColorAttachments),
		depthAttachment:  depthAttachment,
		textures2D:       copyToArena(g.scratch, desc.Textures2D),
		textures3D:       copyToArena(g.scratch, desc.Textures3D),
		buffers:          copyToArena(g.scratch, desc.Buffers),
		tlas:             copyToArena(g.scratch, desc.TLAS),
		viewport:         g.CurrentViewport(),
		exec: func(device rhi.Device, ctx *PassExecutionContext, cl rhi.CommandList, passIdx int) {
			desc.OnExecute(device, ctx, cl, data, passIdx)
		},
	}
	g.passes = append(g.passes, rec)
}

func copyToArena[T any](a *arena.Arena, src []T) []T {
	if len(src) == 0 {
		return nil
	}
	dst := arena.AllocateSlice[T](a, len(src))
	copy(dst, src)
	return dst
}

// Build closes declaration for this frame: it resolves lifetimes and
// adaptive sizes (component G), materializes resources and views and
// synthesizes barriers (components H/I).
func (g *Graph) Build() {
	g.requireOpen("Graph.Build")
	buildPassResourceProperties(g)
	allocatePassResources(g)
	g.state = stateClosed
	g.built = true
}

// Execute records and submits every pass's commands, in one of two modes
// selected by flags (component J), then signals the device that this
// frame's submissions are complete.
func (g *Graph) Execute(flags ExecuteFlags) {
	if g.state != stateClosed || !g.built {
		abort(KindStructural, "Graph.Execute", g.state)
	}

	if flags&ExecuteFlagForceSingleThreaded != 0 {
		g.singleThreadedExecute(context.Background())
	} else {
		g.parallelExecute(context.Background())
	}

	if err := g.device.EndFrame(g.frameIndex); err != nil {
		abortRHI("Graph.Execute", g.frameIndex, err)
	}
}
