// Copyright 2026 The xlat Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hostarch holds the architectural address model shared by the
// translation-table engine: the 4 KiB translation granule, virtual address
// arithmetic and the ARMv8 memory types.
package hostarch

// Translation granule constants. Only the 4 KiB granule is supported.
const (
	// PageShift is the binary log of the page size.
	PageShift = 12

	// PageSize is the size of the translation granule.
	PageSize = 1 << PageShift

	// PageMask masks the offset bits within a page.
	PageMask = PageSize - 1

	// AddrSpaceBits is the widest virtual address space the long-descriptor
	// format can describe with a 4 KiB granule.
	AddrSpaceBits = 48
)

// Addr represents a virtual address.
type Addr uintptr

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageMask)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok is
// false if rounding overflows.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = (v + PageMask).RoundDown()
	ok = addr >= v
	return
}

// PageOffset returns the offset of the address within its page.
func (v Addr) PageOffset() uint64 {
	return uint64(v & PageMask)
}

// IsPageAligned reports whether the address is page-aligned.
func (v Addr) IsPageAligned() bool {
	return v.PageOffset() == 0
}

// AddLength returns the end of the range [v, v+length). ok is false if the
// range wraps around the address space.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	ok = end >= v
	return
}
