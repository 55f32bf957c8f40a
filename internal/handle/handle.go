// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package handle implements the render graph's generational handle scheme:
// opaque integers packed as salt|generation|index.
//
// Handles identify long-lived RG resource-pool entries (Texture2D,
// Texture3D, Buffer). Bit offsets match the original C++ source
// (common/handle.hpp) exactly: salt occupies the top byte, generation sits
// just below it, index fills the rest. The original also defines a 32-bit
// "slim" handle width for RHI views that double as bindless descriptor
// indices; this module has no caller for one (rhi.ViewHandle is a plain
// uint32 minted and owned entirely by the Device implementation, never
// packed or validated by this package — see DESIGN.md), so only the wide
// width is implemented here.
package handle

import "fmt"

const (
	wideSaltBits       = 8
	wideGenerationBits = 8
	wideIndexBits      = 48

	wideSaltShift       = 56
	wideGenerationShift = 48
	wideIndexMask       = (uint64(1) << wideIndexBits) - 1
	wideGenerationMask  = (uint64(1) << wideGenerationBits) - 1
	wideSaltMask        = (uint64(1) << wideSaltBits) - 1
)

// MaxWideIndex is the largest index a wide (64-bit) handle can address.
const MaxWideIndex = wideIndexMask

// Raw is the packed representation of a wide (64-bit) pool handle.
type Raw uint64

// Invalid is the zero handle; it never resolves against a live pool slot.
const Invalid Raw = 0

// Pack assembles a wide handle from its components. salt must fit in 8 bits
// and index must fit in 48 bits; callers within this module guarantee that by
// construction (salts are compile-time constants, indices come from
// idalloc.Allocator, which is capacity-bounded below 2^48).
func Pack(salt uint8, generation uint8, index uint64) Raw {
	return Raw(uint64(salt)<<wideSaltShift | uint64(generation)<<wideGenerationShift | (index & wideIndexMask))
}

// Salt returns the handle's salt byte.
func (r Raw) Salt() uint8 { return uint8(uint64(r) >> wideSaltShift & wideSaltMask) }

// Generation returns the handle's generation byte.
func (r Raw) Generation() uint8 { return uint8(uint64(r) >> wideGenerationShift & wideGenerationMask) }

// Index returns the handle's index component.
func (r Raw) Index() uint64 { return uint64(r) & wideIndexMask }

// IsValid reports whether r is not the zero handle.
func (r Raw) IsValid() bool { return r != Invalid }

// String renders a wide handle for diagnostics.
func (r Raw) String() string {
	return fmt.Sprintf("Handle(salt=0x%02x,gen=%d,idx=%d)", r.Salt(), r.Generation(), r.Index())
}

// Marker is the constraint implemented by per-resource-kind empty structs.
// It both distinguishes Handle[T] types at compile time and supplies the
// constant salt stamped into every handle of that kind.
type Marker interface {
	Salt() uint8
}

// Handle is a type-safe, salt-validated generational handle over resource
// kind T.
type Handle[T Marker] struct {
	raw Raw
}

// New packs a Handle of kind T from a generation and an index, stamping T's
// salt automatically.
func New[T Marker](generation uint8, index uint64) Handle[T] {
	var m T
	return Handle[T]{raw: Pack(m.Salt(), generation, index)}
}

// FromRaw wraps an already-packed Raw as a Handle[T] without validating its
// salt; used when round-tripping a handle that has already been checked.
func FromRaw[T Marker](raw Raw) Handle[T] { return Handle[T]{raw: raw} }

// Raw returns the packed representation.
func (h Handle[T]) Raw() Raw { return h.raw }

// Generation returns the handle's generation component.
func (h Handle[T]) Generation() uint8 { return h.raw.Generation() }

// Index returns the handle's index component.
func (h Handle[T]) Index() uint64 { return h.raw.Index() }

// IsValid reports whether h is non-zero and carries T's salt.
func (h Handle[T]) IsValid() bool {
	var m T
	return h.raw.IsValid() && h.raw.Salt() == m.Salt()
}

// String renders the handle for diagnostics.
func (h Handle[T]) String() string { return h.raw.String() }
