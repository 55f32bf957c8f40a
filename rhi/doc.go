// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package rhi defines the Rendering Hardware Interface the render graph
// targets: resource/view creation, barriers, and command recording. It is
// intentionally backend-agnostic — no concrete GPU backend lives in this
// module — and is satisfied in this repository only by rhi/noop, a
// recording mock used to drive tests.
package rhi
