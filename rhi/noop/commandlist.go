// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package noop

import (
	"sync"

	"github.com/gogpu/rendergraph/rhi"
)

// CommandList is a recording, in-memory rhi.CommandList. Every call appends
// to Calls in order, so a test can assert both that a barrier/draw/dispatch
// happened and, via index comparison against other ops, that it happened in
// the right place relative to BeginRenderPass/EndRenderPass.
type CommandList struct {
	device *Device
	ID     uint64

	mu    sync.Mutex
	Calls []Call

	tempCursor uint64
}

func (cl *CommandList) log(op string, args any) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.Calls = append(cl.Calls, Call{Op: op, Args: args})
}

// CountOp returns how many times op appears in Calls.
func (cl *CommandList) CountOp(op string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	n := 0
	for _, c := range cl.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (cl *CommandList) BufferBarrierOp(barriers []rhi.BufferBarrier) {
	cl.log("BufferBarrier", barriers)
}

func (cl *CommandList) Texture2DBarrierOp(barriers []rhi.Texture2DBarrier) {
	cl.log("Texture2DBarrier", barriers)
}

func (cl *CommandList) Texture3DBarrierOp(barriers []rhi.Texture3DBarrier) {
	cl.log("Texture3DBarrier", barriers)
}

func (cl *CommandList) BeginRenderPass(desc rhi.RenderPassBeginDesc) {
	cl.log("BeginRenderPass", desc)
}

func (cl *CommandList) EndRenderPass() {
	cl.log("EndRenderPass", nil)
}

func (cl *CommandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cl.log("Draw", [4]uint32{vertexCount, instanceCount, firstVertex, firstInstance})
}

func (cl *CommandList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	cl.log("DrawIndexed", indexCount)
}

func (cl *CommandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	cl.log("Dispatch", [3]uint32{groupsX, groupsY, groupsZ})
}

func (cl *CommandList) CopyBufferRegion(dst rhi.BufferHandle, dstOffset uint64, src rhi.BufferHandle, srcOffset, size uint64) {
	cl.log("CopyBufferRegion", size)
}

func (cl *CommandList) UploadTextureData(dst rhi.Texture2DHandle, mipLevel uint32, data []byte, footprint rhi.Footprint) {
	cl.log("UploadTextureData", len(data))
}

func (cl *CommandList) QueueBufferReadback(src rhi.BufferHandle, offset, size uint64) (rhi.ReadbackTicket, error) {
	cl.log("QueueBufferReadback", size)
	return &readbackTicket{data: make([]byte, size)}, nil
}

func (cl *CommandList) AllocateTemporaryResource(sizeBytes uint64) (rhi.TemporaryResource, error) {
	cl.mu.Lock()
	offset := cl.tempCursor
	cl.tempCursor += sizeBytes
	cl.mu.Unlock()
	cl.log("AllocateTemporaryResource", sizeBytes)
	return rhi.TemporaryResource{
		Buffer:      rhi.BufferHandle(cl.ID),
		OffsetBytes: offset,
		SizeBytes:   sizeBytes,
		CPU:         make([]byte, sizeBytes),
	}, nil
}

type readbackTicket struct {
	data []byte
}

func (t *readbackTicket) Poll() ([]byte, bool) {
	return t.data, true
}
