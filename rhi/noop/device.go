// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package noop

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/rendergraph/rhi"
)

// Call records one Device or CommandList method invocation, in order, for
// tests to assert against without a mocking framework.
type Call struct {
	Op   string
	Args any
}

type bufferRecord struct {
	desc rhi.BufferDesc
	cpu  []byte
}

type backing struct {
	id    uint64
	size  uint64
	flags rhi.GPUAllocationFlags
}

// Device is a recording, in-memory rhi.Device. It never touches a real GPU:
// resource "creation" only assigns the next handle and remembers enough
// state (buffer size, for MapBuffer) to keep the render graph's contract
// satisfied.
type Device struct {
	mu sync.Mutex

	Calls []Call

	nextHandle  uint64
	nextView    uint32
	nextBacking uint64

	buffers map[rhi.BufferHandle]*bufferRecord
	tex2D   map[rhi.Texture2DHandle]rhi.Texture2DDesc
	tex3D   map[rhi.Texture3DHandle]rhi.Texture3DDesc

	// Submitted records one entry per SubmitCommandLists call, each the
	// slice of command lists submitted together, in submission order.
	Submitted [][]rhi.CommandList

	Frame uint64
}

// NewDevice constructs an empty recording device.
func NewDevice() *Device {
	return &Device{
		buffers: make(map[rhi.BufferHandle]*bufferRecord),
		tex2D:   make(map[rhi.Texture2DHandle]rhi.Texture2DDesc),
		tex3D:   make(map[rhi.Texture3DHandle]rhi.Texture3DDesc),
	}
}

func (d *Device) log(op string, args any) {
	d.Calls = append(d.Calls, Call{Op: op, Args: args})
}

// CountOp returns how many times op appears in Calls, for assertions like
// "exactly one buffer was created this frame."
func (d *Device) CountOp(op string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (d *Device) CreateBuffer(desc rhi.BufferDesc, region rhi.GPUMemoryRegion) (rhi.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextHandle++
	h := rhi.BufferHandle(d.nextHandle)
	var cpu []byte
	if desc.AllocFlags&rhi.GPUAllocHostVisible != 0 {
		cpu = make([]byte, desc.SizeBytes)
	}
	d.buffers[h] = &bufferRecord{desc: desc, cpu: cpu}
	d.log("CreateBuffer", desc)
	return h, nil
}

func (d *Device) CreateTexture2D(desc rhi.Texture2DDesc, region rhi.GPUMemoryRegion) (rhi.Texture2DHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextHandle++
	h := rhi.Texture2DHandle(d.nextHandle)
	d.tex2D[h] = desc
	d.log("CreateTexture2D", desc)
	return h, nil
}

func (d *Device) CreateTexture3D(desc rhi.Texture3DDesc, region rhi.GPUMemoryRegion) (rhi.Texture3DHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextHandle++
	h := rhi.Texture3DHandle(d.nextHandle)
	d.tex3D[h] = desc
	d.log("CreateTexture3D", desc)
	return h, nil
}

func (d *Device) DestroyBuffer(h rhi.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, h)
	d.log("DestroyBuffer", h)
}

func (d *Device) DestroyTexture2D(h rhi.Texture2DHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tex2D, h)
	d.log("DestroyTexture2D", h)
}

func (d *Device) DestroyTexture3D(h rhi.Texture3DHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tex3D, h)
	d.log("DestroyTexture3D", h)
}

func (d *Device) MapBuffer(h rhi.BufferHandle) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("noop: MapBuffer: unknown handle %v", h)
	}
	if b.cpu == nil {
		return nil, fmt.Errorf("noop: MapBuffer: buffer %v is not host-visible", h)
	}
	return b.cpu, nil
}

func (d *Device) CreateBufferView(buf rhi.BufferHandle, desc rhi.BufferViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateBufferView", desc)
}

func (d *Device) CreateTypedBufferView(buf rhi.BufferHandle, desc rhi.TypedBufferViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTypedBufferView", desc)
}

func (d *Device) CreateUniformBufferView(buf rhi.BufferHandle, desc rhi.BufferViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateUniformBufferView", desc)
}

func (d *Device) CreateRWBufferView(buf rhi.BufferHandle, desc rhi.BufferViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateRWBufferView", desc)
}

func (d *Device) CreateTexture2DShaderView(tex rhi.Texture2DHandle, desc rhi.Texture2DViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTexture2DShaderView", desc)
}

func (d *Device) CreateTexture2DStorageView(tex rhi.Texture2DHandle, desc rhi.Texture2DViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTexture2DStorageView", desc)
}

func (d *Device) CreateTexture2DRenderTargetView(tex rhi.Texture2DHandle, desc rhi.Texture2DViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTexture2DRenderTargetView", desc)
}

func (d *Device) CreateTexture2DDepthStencilView(tex rhi.Texture2DHandle, desc rhi.Texture2DViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTexture2DDepthStencilView", desc)
}

func (d *Device) CreateTexture3DShaderView(tex rhi.Texture3DHandle, desc rhi.Texture3DViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTexture3DShaderView", desc)
}

func (d *Device) CreateTexture3DStorageView(tex rhi.Texture3DHandle, desc rhi.Texture3DViewDesc) (rhi.ViewHandle, error) {
	return d.newView("CreateTexture3DStorageView", desc)
}

func (d *Device) newView(op string, desc any) (rhi.ViewHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextView++
	d.log(op, desc)
	return rhi.ViewHandle(d.nextView), nil
}

func (d *Device) DestroyView(v rhi.ViewHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log("DestroyView", v)
}

// CalculateTexture2DFootprint sums a simple bytes-per-pixel estimate across
// every mip level; the render graph only uses the total to size a transient
// region, never to interpret the bytes themselves.
func (d *Device) CalculateTexture2DFootprint(desc rhi.Texture2DDesc) (rhi.Footprint, error) {
	bpp := bytesPerPixel(desc.Format)
	var total uint64
	w, h := desc.Width, desc.Height
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	for i := uint32(0); i < mips; i++ {
		mw, mh := mipDim(w, i), mipDim(h, i)
		total += uint64(mw) * uint64(mh) * bpp
	}
	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	total *= uint64(layers)
	return rhi.Footprint{RowPitchBytes: uint64(w) * bpp, SlicePitchBytes: uint64(w) * uint64(h) * bpp, SizeBytes: total}, nil
}

func (d *Device) CalculateTexture3DFootprint(desc rhi.Texture3DDesc) (rhi.Footprint, error) {
	bpp := bytesPerPixel(desc.Format)
	var total uint64
	w, h, dep := desc.Width, desc.Height, desc.Depth
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	for i := uint32(0); i < mips; i++ {
		mw, mh, md := mipDim(w, i), mipDim(h, i), mipDim(dep, i)
		total += uint64(mw) * uint64(mh) * uint64(md) * bpp
	}
	return rhi.Footprint{RowPitchBytes: uint64(w) * bpp, SlicePitchBytes: uint64(w) * uint64(h) * bpp, SizeBytes: total}, nil
}

func mipDim(d, level uint32) uint32 {
	v := d >> level
	if v < 1 {
		v = 1
	}
	return v
}

func bytesPerPixel(f rhi.TextureFormat) uint64 {
	switch f {
	case rhi.FormatRGBA8Unorm, rhi.FormatBGRA8Unorm, rhi.FormatD32Float, rhi.FormatR32Uint:
		return 4
	case rhi.FormatR16Float:
		return 2
	default:
		return 4
	}
}

func (d *Device) GPUAlloc(sizeInBytes uint64, flags rhi.GPUAllocationFlags) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextBacking++
	b := &backing{id: d.nextBacking, size: sizeInBytes, flags: flags}
	d.log("GPUAlloc", *b)
	return b, nil
}

func (d *Device) GPUFree(b any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log("GPUFree", b)
}

func (d *Device) AllocateCommandList(ctx context.Context) (rhi.CommandList, error) {
	d.mu.Lock()
	d.nextHandle++
	id := d.nextHandle
	d.mu.Unlock()
	d.log("AllocateCommandList", id)
	return &CommandList{device: d, ID: id}, nil
}

func (d *Device) SubmitCommandLists(ctx context.Context, lists []rhi.CommandList) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]rhi.CommandList, len(lists))
	copy(cp, lists)
	d.Submitted = append(d.Submitted, cp)
	d.log("SubmitCommandLists", len(lists))
	return nil
}

func (d *Device) EndFrame(frameIndex uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Frame = frameIndex
	d.log("EndFrame", frameIndex)
	return nil
}

func (d *Device) DrainGPU(ctx context.Context) error {
	d.log("DrainGPU", nil)
	return nil
}
