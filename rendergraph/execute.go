// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rendergraph

import (
	"context"

	"github.com/gogpu/rendergraph/rhi"
)

// partitionBatches groups passes into contiguous batches for parallel
// recording: a run of leading PassFlagIsSmall passes is folded forward into
// the next non-small pass's batch, so a handful of tiny passes never costs a
// worker-pool slot of its own (spec.md §7, small-pass merging). A trailing
// run of small passes after the last non-small pass becomes its own final
// batch.
func partitionBatches(passes []*passRecord) [][2]int {
	var batches [][2]int
	start := 0
	for i, p := range passes {
		if p.flags&PassFlagIsSmall != 0 {
			continue
		}
		batches = append(batches, [2]int{start, i + 1})
		start = i + 1
	}
	if start < len(passes) {
		batches = append(batches, [2]int{start, len(passes)})
	}
	return batches
}

// recordPass emits passIdx's barriers and, if it declared any attachments,
// wraps its OnExecute callback in a BeginRenderPass/EndRenderPass pair.
// Compute-only and copy-only passes declare no attachments and run outside
// any render pass.
func (g *Graph) recordPass(cl rhi.CommandList, passIdx int) {
	p := g.passes[passIdx]

	if len(p.bufferBarriers) > 0 {
		cl.BufferBarrierOp(p.bufferBarriers)
	}
	if len(p.tex2DBarriers) > 0 {
		cl.Texture2DBarrierOp(p.tex2DBarriers)
	}
	if len(p.tex3DBarriers) > 0 {
		cl.Texture3DBarrierOp(p.tex3DBarriers)
	}

	pctx := &PassExecutionContext{g: g, passIdx: passIdx, viewport: p.viewport, device: g.device, cl: cl}
	defer pctx.close()

	if len(p.colorAttachments) == 0 && p.depthAttachment == nil {
		p.exec(g.device, pctx, cl, passIdx)
		return
	}

	desc := rhi.RenderPassBeginDesc{Width: p.viewport.Width, Height: p.viewport.Height}
	for _, ca := range p.colorAttachments {
		hot, _ := g.reg.textures2D.GetHot(ca.Texture.h)
		desc.ColorAttachments = append(desc.ColorAttachments, rhi.ColorAttachment{View: hot.renderView, Load: ca.Load, Clear: ca.Clear})
	}
	if p.depthAttachment != nil {
		da := p.depthAttachment
		hot, _ := g.reg.textures2D.GetHot(da.Texture.h)
		desc.DepthStencil = &rhi.DepthStencilAttachment{
			View:     hot.depthView,
			Load:     da.Load,
			Clear:    da.Clear,
			ReadOnly: p.flags&PassFlagReadOnlyDepth != 0,
		}
	}

	cl.BeginRenderPass(desc)
	p.exec(g.device, pctx, cl, passIdx)
	cl.EndRenderPass()
}

// singleThreadedExecute partitions the graph into batches (partitionBatches)
// and records each batch into its own command list, in declaration order,
// on the owner thread — the same batching partitionBatches uses for
// parallel mode, just recorded sequentially instead of concurrently. Zero
// passes yields zero batches and no submission at all (spec.md §8's
// "reset; build; execute with zero passes is a no-op, no submits").
func (g *Graph) singleThreadedExecute(ctx context.Context) {
	batches := partitionBatches(g.passes)
	if len(batches) == 0 {
		return
	}

	cls := make([]rhi.CommandList, len(batches))
	for i, b := range batches {
		cl, err := g.device.AllocateCommandList(ctx)
		if err != nil {
			abortRHI("Graph.Execute", "AllocateCommandList", err)
		}
		for p := b[0]; p < b[1]; p++ {
			g.recordPass(cl, p)
		}
		cls[i] = cl
	}

	if err := g.device.SubmitCommandLists(ctx, cls); err != nil {
		abortRHI("Graph.Execute", "SubmitCommandLists", err)
	}
}

// parallelExecute partitions the graph into batches (partitionBatches) and
// records each batch's passes, into its own command list, on g.workers. Each
// batch is self-contained: the barriers materialize.go computed are already
// frozen per-pass, so two batches never need to coordinate beyond the join.
// Zero passes yields zero batches and no submission.
func (g *Graph) parallelExecute(ctx context.Context) {
	batches := partitionBatches(g.passes)
	if len(batches) == 0 {
		return
	}
	cls := make([]rhi.CommandList, len(batches))

	err := g.workers.RunBatches(len(batches), func(batchIdx int) error {
		cl, err := g.device.AllocateCommandList(ctx)
		if err != nil {
			return err
		}
		start, end := batches[batchIdx][0], batches[batchIdx][1]
		for i := start; i < end; i++ {
			g.recordPass(cl, i)
		}
		cls[batchIdx] = cl
		return nil
	})
	if err != nil {
		abortRHI("Graph.Execute", "parallel batch recording", err)
	}

	if err := g.device.SubmitCommandLists(ctx, cls); err != nil {
		abortRHI("Graph.Execute", "SubmitCommandLists", err)
	}
}
