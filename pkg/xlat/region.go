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

package xlat

import (
	"fmt"

	"xlat.dev/xlat/pkg/hostarch"
)

// Attr packs the high-level attributes of a mapped region: memory type,
// access permission, security state and executability.
type Attr uint32

// Attribute field layout.
const (
	attrTypeMask Attr = 0x7

	attrPermShift    = 3
	attrSecShift     = 4
	attrExecShift    = 5
	attrDynamicShift = 30
)

// Memory types, weakest first. See hostarch.MemoryType for ordering
// semantics.
const (
	MemDevice       = Attr(hostarch.MemoryTypeDevice)
	MemNonCacheable = Attr(hostarch.MemoryTypeNonCacheable)
	MemNormal       = Attr(hostarch.MemoryTypeWriteBack)
)

// Access permission, security state and executability. Executability is only
// meaningful for normal read-only memory: device memory and writable memory
// are mapped execute-never regardless.
const (
	PermRO Attr = 0 << attrPermShift
	PermRW Attr = 1 << attrPermShift

	Secure    Attr = 0 << attrSecShift
	NonSecure Attr = 1 << attrSecShift

	Execute      Attr = 0 << attrExecShift
	ExecuteNever Attr = 1 << attrExecShift

	// attrDynamic marks a region added after initialization. Set by the
	// engine only; it is outside the user-settable attribute space.
	attrDynamic Attr = 1 << attrDynamicShift
)

// Common attribute combinations.
const (
	MemCode   = MemNormal | PermRO | Execute
	MemROData = MemNormal | PermRO | ExecuteNever
)

// MemoryType returns the memory type field of the attribute word.
func (a Attr) MemoryType() hostarch.MemoryType {
	return hostarch.MemoryType(a & attrTypeMask)
}

// ReadOnly reports whether the attributes deny writes.
func (a Attr) ReadOnly() bool {
	return a&PermRW == 0
}

// NonSecure reports whether the output address is in the non-secure PA
// space.
func (a Attr) NonSecure() bool {
	return a&NonSecure != 0
}

// ExecuteNever reports whether instruction fetch is forbidden.
func (a Attr) ExecuteNever() bool {
	return a&ExecuteNever != 0
}

// Dynamic reports whether the engine flagged the region as dynamic.
func (a Attr) Dynamic() bool {
	return a&attrDynamic != 0
}

// String implements fmt.Stringer.String.
func (a Attr) String() string {
	s := a.MemoryType().ShortString()
	if a.ReadOnly() {
		s += "-RO"
	} else {
		s += "-RW"
	}
	if a.NonSecure() {
		s += "-NS"
	} else {
		s += "-S"
	}
	if a.ExecuteNever() {
		s += "-XN"
	} else {
		s += "-EXEC"
	}
	if a.Dynamic() {
		s += "-DYN"
	}
	return s
}

// Region describes a single mapping request: Size bytes of physical memory at
// PA appearing at VA with the given attributes.
//
// Granularity is the finest block size down to which the mapper must split
// the region. It bounds future attribute changes: a region mapped with page
// granularity can later have attributes changed page by page, at the cost of
// more sub-tables. Zero means "no pre-splitting required" and is normalized
// to Size.
type Region struct {
	PA          uint64
	VA          hostarch.Addr
	Size        uint64
	Attr        Attr
	Granularity uint64
}

// IdentityRegion returns a region mapping [pa, pa+size) at the identical
// virtual addresses.
func IdentityRegion(pa uint64, size uint64, attr Attr) Region {
	return Region{PA: pa, VA: hostarch.Addr(pa), Size: size, Attr: attr, Granularity: size}
}

// RegionGranularity returns a region mapping [pa, pa+size) at va, pre-split
// to the given granularity so attributes can later be changed at that grain.
func RegionGranularity(pa uint64, va hostarch.Addr, size uint64, attr Attr, granularity uint64) Region {
	return Region{PA: pa, VA: va, Size: size, Attr: attr, Granularity: granularity}
}

// endVA returns the VA of the last byte of the region.
func (r *Region) endVA() hostarch.Addr {
	return r.VA + hostarch.Addr(r.Size) - 1
}

// endPA returns the PA of the last byte of the region.
func (r *Region) endPA() uint64 {
	return r.PA + r.Size - 1
}

// String implements fmt.Stringer.String.
func (r Region) String() string {
	return fmt.Sprintf("VA:%#x PA:%#x size:%#x attr:%s granularity:%#x",
		uintptr(r.VA), r.PA, r.Size, r.Attr, r.Granularity)
}

// checkRegion verifies that the region may be added to the context: page
// alignment, no wrap-around, inside the configured address spaces, space left
// in the region list, and a legal relation to every region already present.
//
// Two regions may either fully contain one another in VA (same VA-PA offset,
// both static, not the exact same range), or be completely separated in both
// VA and PA. Anything else is rejected, and dynamic regions may not overlap
// at all.
func (c *Context) checkRegion(r *Region) error {
	if !r.VA.IsPageAligned() || r.PA&hostarch.PageMask != 0 ||
		r.Size&hostarch.PageMask != 0 || r.Granularity&hostarch.PageMask != 0 {
		return fmt.Errorf("%w: region %s is not page-aligned", ErrInvalid, r)
	}

	endVA, ok := r.VA.AddLength(r.Size - 1)
	if !ok || r.PA > r.endPA() {
		return fmt.Errorf("%w: region %s wraps", ErrOutOfRange, r)
	}
	if endVA > c.vaMax {
		return fmt.Errorf("%w: region %s exceeds VA limit %#x", ErrOutOfRange, r, uintptr(c.vaMax))
	}
	if r.endPA() > c.paMax {
		return fmt.Errorf("%w: region %s exceeds PA limit %#x", ErrOutOfRange, r, c.paMax)
	}

	// The final slot is a permanent zero sentinel; the list is full once
	// the slot before it is taken.
	if c.regions[len(c.regions)-2].Size != 0 {
		return fmt.Errorf("%w: region list full (%d regions)", ErrNoMemory, len(c.regions)-1)
	}

	for i := range c.regions {
		mm := &c.regions[i]
		if mm.Size == 0 {
			break
		}

		// One region completely inside the other (or equal)?
		containedVA := (r.VA >= mm.VA && endVA <= mm.endVA()) ||
			(mm.VA >= r.VA && mm.endVA() <= endVA)

		if containedVA {
			if r.Attr.Dynamic() || mm.Attr.Dynamic() {
				return fmt.Errorf("%w: dynamic region %s overlaps %s", ErrPermission, r, mm)
			}
			if uint64(mm.VA)-mm.PA != uint64(r.VA)-r.PA {
				return fmt.Errorf("%w: %s and %s overlap with different VA-PA offsets", ErrPermission, r, mm)
			}
			if r.VA == mm.VA && r.Size == mm.Size {
				return fmt.Errorf("%w: region %s already present", ErrPermission, r)
			}
		} else {
			// Not nested: then both address spaces must be fully
			// separated. Partial overlap in either is rejected.
			separatedPA := r.endPA() < mm.PA || r.PA > mm.endPA()
			separatedVA := endVA < mm.VA || r.VA > mm.endVA()
			if !separatedVA || !separatedPA {
				return fmt.Errorf("%w: %s partially overlaps %s", ErrPermission, r, mm)
			}
		}
	}

	return nil
}

// insertRegion places the region into the sorted list and returns its index.
// The list is kept ordered by ascending end VA, then ascending size, so that
// when the mapper consumes it front to back, inner (nested) regions are
// installed before the outer ones that contain them and keep their
// finer-grained descriptors.
func (c *Context) insertRegion(r *Region) int {
	endVA := r.endVA()

	i := 0
	for c.regions[i].Size != 0 && c.regions[i].endVA() < endVA {
		i++
	}
	for c.regions[i].Size != 0 && c.regions[i].endVA() == endVA && c.regions[i].Size < r.Size {
		i++
	}

	copy(c.regions[i+1:], c.regions[i:len(c.regions)-1])
	c.regions[i] = *r

	if r.endPA() > c.mappedPA {
		c.mappedPA = r.endPA()
	}
	if endVA > c.mappedVA {
		c.mappedVA = endVA
	}
	return i
}

// deleteRegion removes the region at index i, compacting the list, and
// recomputes the tracked maximum mapped VA/PA if the removed region owned
// them.
func (c *Context) deleteRegion(i int) {
	updateVA := c.regions[i].endVA() == c.mappedVA
	updatePA := c.regions[i].endPA() == c.mappedPA

	copy(c.regions[i:], c.regions[i+1:])
	c.regions[len(c.regions)-1] = Region{}

	if updateVA {
		c.mappedVA = 0
		for j := range c.regions {
			if c.regions[j].Size == 0 {
				break
			}
			if end := c.regions[j].endVA(); end > c.mappedVA {
				c.mappedVA = end
			}
		}
	}
	if updatePA {
		c.mappedPA = 0
		for j := range c.regions {
			if c.regions[j].Size == 0 {
				break
			}
			if end := c.regions[j].endPA(); end > c.mappedPA {
				c.mappedPA = end
			}
		}
	}
}

// findRegion returns the index of the region with the exact base VA and size,
// or -1.
func (c *Context) findRegion(va hostarch.Addr, size uint64) int {
	for i := range c.regions {
		if c.regions[i].Size == 0 {
			break
		}
		if c.regions[i].VA == va && c.regions[i].Size == size {
			return i
		}
	}
	return -1
}
