// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package rhi

import "errors"

// Common RHI errors a Device implementation returns from its creation and
// submission methods. The render graph treats every one of these as kind 6
// ("RHI/driver failure") in spec.md §7: it wraps and repanics rather than
// trying to recover, since a lost device or exhausted GPU memory leaves no
// well-defined graph state to continue from.
var (
	// ErrDeviceOutOfMemory indicates the GPU has exhausted its memory.
	ErrDeviceOutOfMemory = errors.New("rhi: device out of memory")

	// ErrDeviceLost indicates the GPU device has been lost and cannot be
	// recovered; it must be recreated.
	ErrDeviceLost = errors.New("rhi: device lost")

	// ErrViewCreationFailed indicates a view could not be created over an
	// otherwise valid resource (format/usage mismatch at the driver level).
	ErrViewCreationFailed = errors.New("rhi: view creation failed")

	// ErrCommandListExhausted indicates a Device's command-list pool has no
	// further lists available for the current frame.
	ErrCommandListExhausted = errors.New("rhi: command list pool exhausted")

	// ErrReadbackNotReady indicates a ReadbackTicket was polled before its
	// owning frame retired.
	ErrReadbackNotReady = errors.New("rhi: readback not ready")
)
