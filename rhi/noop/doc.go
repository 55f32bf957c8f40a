// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package noop implements an in-memory, call-recording rhi.Device and
// rhi.CommandList, the render graph's only shipped RHI backend (spec.md §1
// scopes concrete GPU backends out; see DESIGN.md). Every create/destroy,
// barrier, and submit call is appended to a log so tests can assert on
// exactly what the render graph asked the device to do, the same
// call-recording idiom as the teacher's hal/noop.
package noop
