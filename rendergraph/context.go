// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import "github.com/gogpu/rendergraph/rhi"

// PassExecutionContext is the per-pass resolver a pass's OnExecute callback
// uses to turn the rg handles it declared at AddRenderPass time into RHI
// handles and views (spec component K). Every Resolve* method asserts the
// owning pass actually declared the matching access kind, via the access
// bitsets materialize.go set during Build; resolving an undeclared access is
// a KindAccess contract violation, not a recoverable error.
type PassExecutionContext struct {
	g       *Graph
	passIdx int

	viewport rhi.Viewport
	device   rhi.Device
	cl       rhi.CommandList

	tempViewCount int
	tempViews     [MaxTemporaryViews]rhi.ViewHandle
}

// close destroys every temporary view this context allocated, per spec.md
// §4.K ("destroy it in the context's drop"). Called once the pass's
// OnExecute callback (and any render pass it opened) has returned; a
// temporary view's lifetime never extends past the pass that created it.
func (ctx *PassExecutionContext) close() {
	for i := 0; i < ctx.tempViewCount; i++ {
		ctx.device.DestroyView(ctx.tempViews[i])
	}
}

// Viewport returns the viewport active when this pass was declared.
func (ctx *PassExecutionContext) Viewport() rhi.Viewport { return ctx.viewport }

// CommandList returns the command list this pass records into. Exposed so an
// OnExecute callback can issue Draw/Dispatch/CopyBufferRegion calls the
// context itself doesn't wrap.
func (ctx *PassExecutionContext) CommandList() rhi.CommandList { return ctx.cl }

// AccelerationStructures returns the TLAS handles this pass declared
// (RenderPassDesc.TLAS), for binding into a ray-tracing shader table. The
// graph neither validates nor barriers these; they are opaque, externally
// managed input (spec.md §3).
func (ctx *PassExecutionContext) AccelerationStructures() []rhi.AccelerationStructureHandle {
	return ctx.g.passes[ctx.passIdx].tlas
}

// ResolveTexture2D returns t's physical RHI handle.
func (ctx *PassExecutionContext) ResolveTexture2D(t Texture2D) rhi.Texture2DHandle {
	hot, ok := ctx.g.reg.textures2D.GetHot(t.h)
	if !ok || !hot.resourceAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture2D", t)
	}
	return hot.handle
}

// ResolveTexture2DShaderView returns t's shader-resource view, valid only if
// this pass declared t.ShaderReadOnly().
func (ctx *PassExecutionContext) ResolveTexture2DShaderView(t Texture2D) rhi.ViewHandle {
	hot, ok := ctx.g.reg.textures2D.GetHot(t.h)
	if !ok || !hot.shaderAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture2DShaderView", t)
	}
	return hot.shaderView
}

// ResolveTexture2DRenderTargetView returns t's render-target view, valid only
// if this pass declared t as a ColorAttachment.
func (ctx *PassExecutionContext) ResolveTexture2DRenderTargetView(t Texture2D) rhi.ViewHandle {
	hot, ok := ctx.g.reg.textures2D.GetHot(t.h)
	if !ok || !hot.renderAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture2DRenderTargetView", t)
	}
	return hot.renderView
}

// ResolveTexture2DDepthStencilView returns t's depth/stencil view, valid only
// if this pass declared t as its DepthAttachment.
func (ctx *PassExecutionContext) ResolveTexture2DDepthStencilView(t Texture2D) rhi.ViewHandle {
	hot, ok := ctx.g.reg.textures2D.GetHot(t.h)
	if !ok || !hot.depthAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture2DDepthStencilView", t)
	}
	return hot.depthView
}

// ResolveTexture2DStorageView returns t's read-write (UAV) view at mip, valid
// only if this pass declared t.ShaderReadWrite(mip, ...).
func (ctx *PassExecutionContext) ResolveTexture2DStorageView(t Texture2D, mip uint32) rhi.ViewHandle {
	hot, ok := ctx.g.reg.textures2D.GetHot(t.h)
	if !ok || int(mip) >= MaxRWViews || !hot.rwAccess[mip].test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture2DStorageView", t)
	}
	return hot.rwViews[mip]
}

// ResolveTexture3D returns t's physical RHI handle.
func (ctx *PassExecutionContext) ResolveTexture3D(t Texture3D) rhi.Texture3DHandle {
	hot, ok := ctx.g.reg.textures3D.GetHot(t.h)
	if !ok || !hot.resourceAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture3D", t)
	}
	return hot.handle
}

// ResolveTexture3DShaderView returns t's shader-resource view.
func (ctx *PassExecutionContext) ResolveTexture3DShaderView(t Texture3D) rhi.ViewHandle {
	hot, ok := ctx.g.reg.textures3D.GetHot(t.h)
	if !ok || !hot.shaderAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture3DShaderView", t)
	}
	return hot.shaderView
}

// ResolveTexture3DStorageView returns t's read-write (UAV) view at mip.
func (ctx *PassExecutionContext) ResolveTexture3DStorageView(t Texture3D, mip uint32) rhi.ViewHandle {
	hot, ok := ctx.g.reg.textures3D.GetHot(t.h)
	if !ok || int(mip) >= MaxRWViews || !hot.rwAccess[mip].test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTexture3DStorageView", t)
	}
	return hot.rwViews[mip]
}

// ResolveBuffer returns b's physical RHI handle and the byte range this
// frame's materialization carved for it (OffsetBytes/SizeBytes), valid for
// any declared access kind, including ones with no dedicated view (Index,
// DrawID, Argument, CopySource, CopyDest).
func (ctx *PassExecutionContext) ResolveBuffer(b Buffer) rhi.TemporaryResource {
	hot, ok := ctx.g.reg.buffers.GetHot(b.h)
	if !ok || !hot.resourceAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveBuffer", b)
	}
	return hot.resource
}

// ResolveBufferView returns b's raw shader-resource view, valid only if this
// pass declared b.ShaderReadOnly() with no structured element size.
func (ctx *PassExecutionContext) ResolveBufferView(b Buffer) rhi.ViewHandle {
	hot, ok := ctx.g.reg.buffers.GetHot(b.h)
	if !ok || !hot.rawAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveBufferView", b)
	}
	return hot.rawView
}

// ResolveTypedBufferView returns b's structured (typed) view, valid only if
// this pass declared b.ShaderReadOnlyTyped(...).
func (ctx *PassExecutionContext) ResolveTypedBufferView(b Buffer) rhi.ViewHandle {
	hot, ok := ctx.g.reg.buffers.GetHot(b.h)
	if !ok || !hot.typedAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveTypedBufferView", b)
	}
	return hot.typedView
}

// ResolveUniformBufferView returns b's uniform view, valid only if this pass
// declared b.UniformBuffer().
func (ctx *PassExecutionContext) ResolveUniformBufferView(b Buffer) rhi.ViewHandle {
	hot, ok := ctx.g.reg.buffers.GetHot(b.h)
	if !ok || !hot.uniformAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveUniformBufferView", b)
	}
	return hot.uniformView
}

// ResolveRWBufferView returns b's read-write (UAV) view, valid only if this
// pass declared b.ShaderReadWrite(...).
func (ctx *PassExecutionContext) ResolveRWBufferView(b Buffer) rhi.ViewHandle {
	hot, ok := ctx.g.reg.buffers.GetHot(b.h)
	if !ok || !hot.rwAccess.test(ctx.passIdx) {
		abort(KindAccess, "PassExecutionContext.ResolveRWBufferView", b)
	}
	return hot.rwView
}

// AllocateTemporaryBufferView carves a scratch host-visible buffer range good
// for this pass's command list only, and returns a raw shader-resource view
// over it alongside the CPU-writable bytes backing it.
func (ctx *PassExecutionContext) AllocateTemporaryBufferView(sizeBytes uint64) (rhi.ViewHandle, []byte) {
	return ctx.allocateTemporaryView(sizeBytes, false)
}

// AllocateTemporaryUniformBufferView is AllocateTemporaryBufferView, but the
// returned view is created as a uniform buffer view.
func (ctx *PassExecutionContext) AllocateTemporaryUniformBufferView(sizeBytes uint64) (rhi.ViewHandle, []byte) {
	return ctx.allocateTemporaryView(sizeBytes, true)
}

func (ctx *PassExecutionContext) allocateTemporaryView(sizeBytes uint64, uniform bool) (rhi.ViewHandle, []byte) {
	if ctx.tempViewCount >= MaxTemporaryViews {
		abort(KindCapacity, "PassExecutionContext.AllocateTemporaryBufferView", ctx.tempViewCount)
	}
	res, err := ctx.cl.AllocateTemporaryResource(sizeBytes)
	if err != nil {
		abortRHI("PassExecutionContext.AllocateTemporaryBufferView", sizeBytes, err)
	}
	desc := rhi.BufferViewDesc{OffsetBytes: res.OffsetBytes, SizeBytes: res.SizeBytes}
	var v rhi.ViewHandle
	if uniform {
		v, err = ctx.device.CreateUniformBufferView(res.Buffer, desc)
	} else {
		v, err = ctx.device.CreateBufferView(res.Buffer, desc)
	}
	if err != nil {
		abortRHI("PassExecutionContext.AllocateTemporaryBufferView", sizeBytes, err)
	}
	ctx.tempViews[ctx.tempViewCount] = v
	ctx.tempViewCount++
	return v, res.CPU
}
