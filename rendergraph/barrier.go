// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import "github.com/gogpu/rendergraph/rhi"

// texFold is one usage's contribution to a texture's barrier state: the
// sync stages and access it requires, and the layout it needs to be in
// (spec component I, the sync-stage/access/layout folding table of
// spec.md §4.H).
type texFold struct {
	stage  rhi.PipelineSyncStage
	access rhi.PipelineAccess
	layout rhi.TextureLayout
}

// bufFold is texFold without a layout: buffers have no image layout to
// transition.
type bufFold struct {
	stage  rhi.PipelineSyncStage
	access rhi.PipelineAccess
}

// shaderVisibilityStage is the sync-stage set ShaderReadOnly/ShaderReadWrite/
// Uniform usages contribute: the full graphics+compute+ray-tracing
// visibility set, narrowed to ComputeShader only when the pass is
// ComputeOnly (spec.md §4.H table, "... or Compute only if pass is
// ComputeOnly," resolved in DESIGN.md's open question 3 as a full
// narrowing/replace rather than an OR).
func shaderVisibilityStage(flags PassFlags) rhi.PipelineSyncStage {
	if flags&PassFlagComputeOnly != 0 {
		return rhi.SyncStageComputeShader
	}
	return rhi.SyncStageVertexShader | rhi.SyncStagePixelShader | rhi.SyncStageComputeShader | rhi.SyncStageRayTracing
}

func renderTargetFold() texFold {
	return texFold{stage: rhi.SyncStageRenderTargetOut, access: rhi.AccessRenderTargetWrite, layout: rhi.LayoutRenderTarget}
}

// depthTargetFold picks early- vs. late-depth-test sync stage from
// AllDrawUseEarlyZ, and read vs. read-write access/layout from ReadOnlyDepth.
func depthTargetFold(flags PassFlags) texFold {
	stage := rhi.SyncStageLateDepthTest
	if flags&PassFlagAllDrawUseEarlyZ != 0 {
		stage = rhi.SyncStageEarlyDepthTest
	}
	if flags&PassFlagReadOnlyDepth != 0 {
		return texFold{stage: stage, access: rhi.AccessDepthTargetRead, layout: rhi.LayoutDepthTargetRead}
	}
	return texFold{stage: stage, access: rhi.AccessDepthTargetReadWrite, layout: rhi.LayoutDepthTargetReadWrite}
}

// shaderReadOnlyTextureFold preserves LayoutDepthTargetRead when the layout
// already folded into this pass is that (the depth-read-then-sample
// pattern spec.md §9 calls load-bearing), instead of overwriting it with
// LayoutShaderRead.
func shaderReadOnlyTextureFold(flags PassFlags, layoutSoFar rhi.TextureLayout) texFold {
	layout := rhi.LayoutShaderRead
	if layoutSoFar == rhi.LayoutDepthTargetRead {
		layout = rhi.LayoutDepthTargetRead
	}
	return texFold{stage: shaderVisibilityStage(flags), access: rhi.AccessShaderRead, layout: layout}
}

func shaderReadWriteTextureFold(flags PassFlags) texFold {
	return texFold{stage: shaderVisibilityStage(flags), access: rhi.AccessShaderReadWrite, layout: rhi.LayoutShaderReadWrite}
}

func copySourceTextureFold() texFold {
	return texFold{stage: rhi.SyncStageCopy, access: rhi.AccessCopyRead, layout: rhi.LayoutCopyRead}
}

func copyDestTextureFold() texFold {
	return texFold{stage: rhi.SyncStageCopy, access: rhi.AccessCopyWrite, layout: rhi.LayoutCopyWrite}
}

// presentationTextureFold replaces (rather than merges into) the pass's
// fold: Presentation must be the resource's only access this pass (enforced
// at usage-coalescing time before this is ever called), so there is nothing
// to preserve.
func presentationTextureFold() texFold {
	return texFold{layout: rhi.LayoutPresent}
}

// bufferAccessFold is spec.md §4.H's table, "minus the layout column," for
// one buffer access kind.
func bufferAccessFold(access BufferAccess, flags PassFlags) bufFold {
	switch access {
	case BufferAccessShaderReadOnly:
		return bufFold{stage: shaderVisibilityStage(flags), access: rhi.AccessShaderRead}
	case BufferAccessShaderReadWrite:
		return bufFold{stage: shaderVisibilityStage(flags), access: rhi.AccessShaderReadWrite}
	case BufferAccessUniform:
		return bufFold{stage: shaderVisibilityStage(flags), access: rhi.AccessUniformBuffer}
	case BufferAccessIndex:
		return bufFold{stage: rhi.SyncStageInputAssembly, access: rhi.AccessIndexInput}
	case BufferAccessDrawID:
		return bufFold{stage: rhi.SyncStageInputAssembly, access: rhi.AccessVertexInput}
	case BufferAccessArgument:
		return bufFold{stage: rhi.SyncStageIndirectCommand, access: rhi.AccessCommandInput}
	case BufferAccessCopySource:
		return bufFold{stage: rhi.SyncStageCopy, access: rhi.AccessCopyRead}
	case BufferAccessCopyDest:
		return bufFold{stage: rhi.SyncStageCopy, access: rhi.AccessCopyWrite}
	default:
		return bufFold{}
	}
}

// beginPass snapshots current->prev the first time this resource is touched
// in passIdx (spec.md §4.H step 3: "if barrierLastUpdated != currentPass,
// snapshot current->prev, clear current"). A resource touched more than
// once in the same pass (e.g. color-attached and also sampled) only
// snapshots once; later touches fold into the same "current" accumulator.
func (bs *textureBarrierState) beginPass(passIdx int) {
	if bs.lastUpdatedPass == passIdx {
		return
	}
	bs.prevSync, bs.prevAccess, bs.prevLayout = bs.currSync, bs.currAccess, bs.currLayout
	bs.currSync, bs.currAccess, bs.currLayout = 0, 0, 0
	bs.requiresBarrier = false
	bs.lastUpdatedPass = passIdx
}

// apply OR-folds f's stage/access into the current accumulator and replaces
// the current layout outright (the one piece of state a later fold in the
// same pass fully supersedes rather than unions, per the layout column of
// spec.md §4.H's table).
func (bs *textureBarrierState) apply(f texFold, requiresBarrier bool) {
	bs.currSync |= f.stage
	bs.currAccess |= f.access
	bs.currLayout = f.layout
	if requiresBarrier {
		bs.requiresBarrier = true
	}
}

// needsBarrier reports whether the state accumulated so far this pass
// differs from the state as of the last pass that touched the resource, or
// a usage explicitly requested a read/write hazard barrier regardless
// (spec.md invariant 6 / "requiresReadWriteBarrier"). A texture no pass has
// touched yet (all-zero previous state) needs none: there is nothing to
// transition from.
func (bs *textureBarrierState) needsBarrier() bool {
	if bs.prevSync == 0 && bs.prevAccess == 0 && bs.prevLayout == rhi.LayoutUndefined {
		return false
	}
	return bs.requiresBarrier ||
		bs.prevSync != bs.currSync || bs.prevAccess != bs.currAccess || bs.prevLayout != bs.currLayout
}

func (bs *bufferBarrierState) beginPass(passIdx int) {
	if bs.lastUpdatedPass == passIdx {
		return
	}
	bs.prevSync, bs.prevAccess = bs.currSync, bs.currAccess
	bs.currSync, bs.currAccess = 0, 0
	bs.requiresBarrier = false
	bs.lastUpdatedPass = passIdx
}

func (bs *bufferBarrierState) apply(f bufFold, requiresBarrier bool) {
	bs.currSync |= f.stage
	bs.currAccess |= f.access
	if requiresBarrier {
		bs.requiresBarrier = true
	}
}

func (bs *bufferBarrierState) needsBarrier() bool {
	return bs.requiresBarrier || bs.prevSync != bs.currSync || bs.prevAccess != bs.currAccess
}
