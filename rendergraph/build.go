// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import "github.com/gogpu/rendergraph/rhi"

// buildPassResourceProperties is the build-step analyzer (spec component G):
// a single linear sweep over this frame's declared passes that, for every
// resource touched, resolves its lifetime range, accumulates the RHI
// creation flags its eventual CreateTexture2D/CreateTexture3D/CreateBuffer
// call needs, resolves adaptive sizing against the pass's active viewport,
// and rejects a first-ever reference to an internal (graph-owned) resource
// that is a pure read — nothing has produced data into it yet.
func buildPassResourceProperties(g *Graph) {
	for passIdx, p := range g.passes {
		for _, ca := range p.colorAttachments {
			touchTexture2D(g, ca.Texture, passIdx, p.viewport, rhi.TextureFlagRenderTarget, ca.Load == rhi.LoadOpLoad, -1)
		}
		if p.depthAttachment != nil {
			da := p.depthAttachment
			touchTexture2D(g, da.Texture, passIdx, p.viewport, rhi.TextureFlagDepthTarget, da.Load == rhi.LoadOpLoad, -1)
		}
		for _, u := range p.textures2D {
			flags, isRead := texture2DUsageFlags(u.Access)
			mip := -1
			if u.Access == TextureAccessShaderReadWrite {
				mip = int(u.MipLevel)
			}
			touchTexture2D(g, u.Texture, passIdx, p.viewport, flags, isRead, mip)
		}
		for _, u := range p.textures3D {
			flags, isRead := texture2DUsageFlags(u.Access)
			mip := -1
			if u.Access == TextureAccessShaderReadWrite {
				mip = int(u.MipLevel)
			}
			touchTexture3D(g, u.Texture, passIdx, p.viewport, flags, isRead, mip)
		}
		for _, u := range p.buffers {
			flags, isRead := bufferUsageFlags(u.Access)
			touchBuffer(g, u.Buffer, passIdx, flags, isRead)
		}
	}
}

func texture2DUsageFlags(a TextureAccess) (rhi.TextureCreationFlags, bool) {
	switch a {
	case TextureAccessShaderReadOnly:
		return rhi.TextureFlagShaderReadOnly, true
	case TextureAccessShaderReadWrite:
		return rhi.TextureFlagShaderReadWrite, false
	case TextureAccessCopySource:
		return rhi.TextureFlagNone, true
	case TextureAccessCopyDest, TextureAccessPresentation:
		return rhi.TextureFlagNone, false
	default:
		return rhi.TextureFlagNone, false
	}
}

func bufferUsageFlags(a BufferAccess) (rhi.BufferCreationFlags, bool) {
	switch a {
	case BufferAccessShaderReadOnly:
		return rhi.BufferFlagShaderReadOnly, true
	case BufferAccessShaderReadWrite:
		return rhi.BufferFlagShaderReadWrite, false
	case BufferAccessUniform:
		return rhi.BufferFlagUniformBuffer, true
	case BufferAccessIndex, BufferAccessDrawID, BufferAccessArgument, BufferAccessCopySource:
		return rhi.BufferFlagNone, true
	case BufferAccessCopyDest:
		return rhi.BufferFlagNone, false
	default:
		return rhi.BufferFlagNone, false
	}
}

// adaptiveDim divides viewportDim by divisor, floored to 1, mirroring
// TextureSizeMode's "declared width/height double as a divisor of the
// current viewport" semantics (spec.md §6.2 / SPEC_FULL.md Texture2DDesc).
func adaptiveDim(viewportDim, divisor uint32) uint32 {
	if divisor == 0 {
		return viewportDim
	}
	d := viewportDim / divisor
	if d < 1 {
		d = 1
	}
	return d
}

func touchTexture2D(g *Graph, t Texture2D, passIdx int, viewport rhi.Viewport, flags rhi.TextureCreationFlags, isRead bool, rwMip int) {
	ok := g.reg.textures2D.MutateCold(t.h, func(c *texture2DCold) {
		if c.firstUsedPass == -1 {
			if c.ownership == ownershipInternal && isRead {
				abort(KindLifetime, "Graph.Build", t)
			}
			if c.desc.SizeMode == SizeModeAdaptive {
				c.resolvedWidth = adaptiveDim(viewport.Width, c.desc.Width)
				c.resolvedHeight = adaptiveDim(viewport.Height, c.desc.Height)
			} else {
				c.resolvedWidth, c.resolvedHeight = c.desc.Width, c.desc.Height
			}
			c.firstUsedPass = passIdx
		}
		c.lastUsedPass = passIdx
		c.creationFlags |= flags
		if rwMip >= 0 {
			c.rwViewMipBitmask |= 1 << uint(rwMip)
		}
	})
	if !ok {
		abort(KindIdentity, "Graph.Build", t)
	}
}

// touchTexture3D is touchTexture2D's volumetric analog. Depth never resizes:
// a viewport has no depth dimension to divide against (see Texture3DDesc).
func touchTexture3D(g *Graph, t Texture3D, passIdx int, viewport rhi.Viewport, flags rhi.TextureCreationFlags, isRead bool, rwMip int) {
	ok := g.reg.textures3D.MutateCold(t.h, func(c *texture3DCold) {
		if c.firstUsedPass == -1 {
			if c.ownership == ownershipInternal && isRead {
				abort(KindLifetime, "Graph.Build", t)
			}
			if c.desc.SizeMode == SizeModeAdaptive {
				c.resolvedWidth = adaptiveDim(viewport.Width, c.desc.Width)
				c.resolvedHeight = adaptiveDim(viewport.Height, c.desc.Height)
			} else {
				c.resolvedWidth, c.resolvedHeight = c.desc.Width, c.desc.Height
			}
			c.firstUsedPass = passIdx
		}
		c.lastUsedPass = passIdx
		c.creationFlags |= flags
		if rwMip >= 0 {
			c.rwViewMipBitmask |= 1 << uint(rwMip)
		}
	})
	if !ok {
		abort(KindIdentity, "Graph.Build", t)
	}
}

func touchBuffer(g *Graph, b Buffer, passIdx int, flags rhi.BufferCreationFlags, isRead bool) {
	ok := g.reg.buffers.MutateCold(b.h, func(c *bufferCold) {
		if c.firstUsedPass == -1 {
			if c.ownership == ownershipInternal && isRead {
				abort(KindLifetime, "Graph.Build", b)
			}
			c.firstUsedPass = passIdx
		}
		c.lastUsedPass = passIdx
		c.creationFlags |= flags
	})
	if !ok {
		abort(KindIdentity, "Graph.Build", b)
	}
}
