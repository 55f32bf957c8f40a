// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import (
	"testing"

	"github.com/gogpu/rendergraph/rhi"
)

func TestShaderVisibilityStageComputeOnlyNarrows(t *testing.T) {
	got := shaderVisibilityStage(PassFlagComputeOnly)
	if got != rhi.SyncStageComputeShader {
		t.Fatalf("shaderVisibilityStage(ComputeOnly) = %v, want SyncStageComputeShader", got)
	}
}

func TestShaderVisibilityStageDefaultIsFullSet(t *testing.T) {
	got := shaderVisibilityStage(PassFlagNone)
	want := rhi.SyncStageVertexShader | rhi.SyncStagePixelShader | rhi.SyncStageComputeShader | rhi.SyncStageRayTracing
	if got != want {
		t.Fatalf("shaderVisibilityStage(None) = %v, want %v", got, want)
	}
}

func TestDepthTargetFoldEarlyZReadOnly(t *testing.T) {
	f := depthTargetFold(PassFlagAllDrawUseEarlyZ | PassFlagReadOnlyDepth)
	if f.stage != rhi.SyncStageEarlyDepthTest {
		t.Fatalf("stage = %v, want EarlyDepthTest", f.stage)
	}
	if f.access != rhi.AccessDepthTargetRead || f.layout != rhi.LayoutDepthTargetRead {
		t.Fatalf("access/layout = %v/%v, want DepthTargetRead/DepthTargetRead", f.access, f.layout)
	}
}

func TestDepthTargetFoldLateReadWrite(t *testing.T) {
	f := depthTargetFold(PassFlagNone)
	if f.stage != rhi.SyncStageLateDepthTest {
		t.Fatalf("stage = %v, want LateDepthTest", f.stage)
	}
	if f.access != rhi.AccessDepthTargetReadWrite || f.layout != rhi.LayoutDepthTargetReadWrite {
		t.Fatalf("access/layout = %v/%v, want DepthTargetReadWrite/DepthTargetReadWrite", f.access, f.layout)
	}
}

// TestShaderReadOnlyTextureFoldPreservesDepthRead is the depth-read-then-
// sample pattern spec.md §9 calls load-bearing: a texture already folded to
// DepthTargetRead this pass must stay there when a later ShaderReadOnly
// usage folds in, not fall back to ShaderRead.
func TestShaderReadOnlyTextureFoldPreservesDepthRead(t *testing.T) {
	f := shaderReadOnlyTextureFold(PassFlagNone, rhi.LayoutDepthTargetRead)
	if f.layout != rhi.LayoutDepthTargetRead {
		t.Fatalf("layout = %v, want LayoutDepthTargetRead preserved", f.layout)
	}
}

func TestShaderReadOnlyTextureFoldDefaultsToShaderRead(t *testing.T) {
	f := shaderReadOnlyTextureFold(PassFlagNone, rhi.LayoutUndefined)
	if f.layout != rhi.LayoutShaderRead {
		t.Fatalf("layout = %v, want LayoutShaderRead", f.layout)
	}
}

func TestBufferAccessFoldIndex(t *testing.T) {
	f := bufferAccessFold(BufferAccessIndex, PassFlagNone)
	if f.stage != rhi.SyncStageInputAssembly || f.access != rhi.AccessIndexInput {
		t.Fatalf("fold = %+v, want {InputAssembly, IndexInput}", f)
	}
}

func TestBufferAccessFoldDrawID(t *testing.T) {
	f := bufferAccessFold(BufferAccessDrawID, PassFlagNone)
	if f.stage != rhi.SyncStageInputAssembly || f.access != rhi.AccessVertexInput {
		t.Fatalf("fold = %+v, want {InputAssembly, VertexInput}", f)
	}
}

func TestBufferAccessFoldArgument(t *testing.T) {
	f := bufferAccessFold(BufferAccessArgument, PassFlagNone)
	if f.stage != rhi.SyncStageIndirectCommand || f.access != rhi.AccessCommandInput {
		t.Fatalf("fold = %+v, want {IndirectCommand, CommandInput}", f)
	}
}

func TestTextureBarrierStateBeginPassSnapshotsOncePerPass(t *testing.T) {
	var bs textureBarrierState
	bs.lastUpdatedPass = -1

	bs.beginPass(0)
	bs.apply(renderTargetFold(), false)
	// A second touch within the same pass must not re-snapshot (prev stays
	// zero, current keeps accumulating).
	bs.beginPass(0)
	bs.apply(shaderReadOnlyTextureFold(PassFlagNone, bs.currLayout), false)

	if bs.prevSync != 0 || bs.prevAccess != 0 || bs.prevLayout != rhi.LayoutUndefined {
		t.Fatalf("prev state changed within the same pass: sync=%v access=%v layout=%v", bs.prevSync, bs.prevAccess, bs.prevLayout)
	}
	if bs.currAccess&rhi.AccessRenderTargetWrite == 0 || bs.currAccess&rhi.AccessShaderRead == 0 {
		t.Fatalf("currAccess = %v, want both RenderTargetWrite and ShaderRead folded in", bs.currAccess)
	}
}

func TestTextureBarrierStateNeedsBarrierOnChange(t *testing.T) {
	var bs textureBarrierState
	bs.lastUpdatedPass = -1

	bs.beginPass(0)
	bs.apply(renderTargetFold(), false)
	if bs.needsBarrier() {
		t.Fatalf("needsBarrier() = true on pass 0, want false (nothing to transition from)")
	}

	bs.beginPass(1)
	bs.apply(shaderReadOnlyTextureFold(PassFlagNone, rhi.LayoutUndefined), false)
	if !bs.needsBarrier() {
		t.Fatalf("needsBarrier() = false transitioning RenderTarget -> ShaderRead, want true")
	}
}

func TestTextureBarrierStateNoBarrierWhenUnchanged(t *testing.T) {
	var bs textureBarrierState
	bs.lastUpdatedPass = -1

	bs.beginPass(0)
	bs.apply(shaderReadOnlyTextureFold(PassFlagNone, rhi.LayoutUndefined), false)
	bs.beginPass(1)
	bs.apply(shaderReadOnlyTextureFold(PassFlagNone, rhi.LayoutUndefined), false)

	if bs.needsBarrier() {
		t.Fatalf("needsBarrier() = true for an unchanged ShaderReadOnly->ShaderReadOnly transition")
	}
}

func TestTextureBarrierStateRequiresBarrierOverride(t *testing.T) {
	var bs textureBarrierState
	bs.lastUpdatedPass = -1

	bs.beginPass(0)
	bs.apply(shaderReadWriteTextureFold(PassFlagNone), false)
	bs.beginPass(1)
	bs.apply(shaderReadWriteTextureFold(PassFlagNone), true)

	if !bs.needsBarrier() {
		t.Fatalf("needsBarrier() = false with an explicit read/write hazard request, want true")
	}
}

func TestBufferBarrierStateNeedsBarrierOnChange(t *testing.T) {
	var bs bufferBarrierState
	bs.lastUpdatedPass = -1

	bs.beginPass(0)
	bs.apply(bufferAccessFold(BufferAccessCopyDest, PassFlagNone), false)
	bs.beginPass(1)
	bs.apply(bufferAccessFold(BufferAccessShaderReadOnly, PassFlagNone), false)

	if !bs.needsBarrier() {
		t.Fatalf("needsBarrier() = false transitioning CopyDest -> ShaderReadOnly, want true")
	}
}
