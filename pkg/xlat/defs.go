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

import "xlat.dev/xlat/pkg/hostarch"

// ARMv8 long-descriptor translation table geometry, 4 KiB granule.
const (
	// tableEntriesShift is the binary log of the number of entries in a
	// full translation table.
	tableEntriesShift = 9

	// tableEntries is the number of 64-bit descriptors in a full table.
	tableEntries = 1 << tableEntriesShift

	// tableSize is the byte size of one full table.
	tableSize = tableEntries * 8

	// levelMax is the deepest lookup level. Entries there map single
	// pages.
	levelMax = 3

	// levelMin is the shallowest lookup level the format defines.
	levelMin = 0

	// minLevelBlockDesc is the shallowest level at which block
	// descriptors are allowed.
	minLevelBlockDesc = 1
)

// Descriptor type bits (bits [1:0]).
const (
	invalidDesc uint64 = 0x0
	blockDesc   uint64 = 0x1 // levels 0-2
	tableDesc   uint64 = 0x3 // levels 0-2
	pageDesc    uint64 = 0x3 // level 3
	descMask    uint64 = 0x3
)

// tableAddrMask extracts the next-level table (or output) address from a
// descriptor.
const tableAddrMask uint64 = 0x0000FFFFFFFFF000

// Lower attribute field encodings. The lowerAttrs values are already shifted
// into their final descriptor positions.
const (
	lowerAttrsShift = 2

	// MAIR attribute indices. The MMU enable code programs MAIR_ELx to
	// match: index 0 inner/outer write-back write-allocate, index 1
	// Device-nGnRE, index 2 non-cacheable.
	attrWBWAIndex         uint64 = 0x0
	attrDeviceIndex       uint64 = 0x1
	attrNonCacheableIndex uint64 = 0x2
	attrIndexMask         uint64 = 0x7

	// AP[2]: read-only when set. AP[1] is RES1 for the regimes targeted
	// here and left zero, as the hardware ignores it at EL2/EL3.
	ap2Shift        = 7
	apROBit  uint64 = 1 << ap2Shift

	// NS bit: output address is in the non-secure PA space.
	nsBit uint64 = 1 << 5

	// Shareability field, bits [9:8].
	outerShareable uint64 = 0x2 << 8
	innerShareable uint64 = 0x3 << 8

	// Access flag. Always set: the engine does not handle access-flag
	// faults.
	accessFlagBit uint64 = 1 << 10
)

// Upper attribute bits.
const (
	// xnShift is the UXN/XN bit position; pxnShift only exists in
	// translation regimes with two VA ranges (EL1&0).
	xnShift  = 54
	pxnShift = 53

	xnBit  uint64 = 1 << xnShift
	pxnBit uint64 = 1 << pxnShift
)

// addrShift returns the bit position of the index field for the given level:
// entries at level l each span 1 << addrShift(l) bytes of VA.
func addrShift(level uint) uint {
	return hostarch.PageShift + (levelMax-level)*tableEntriesShift
}

// levelBlockSize returns the VA span of one entry at the given level
// (1 GiB at level 1, 2 MiB at level 2, 4 KiB at level 3).
func levelBlockSize(level uint) uint64 {
	return 1 << addrShift(level)
}

// levelBlockMask masks the offset bits within one entry's span.
func levelBlockMask(level uint) uint64 {
	return levelBlockSize(level) - 1
}

// baseLevel returns the initial lookup level for a virtual address space of
// the given size: small address spaces skip the outer levels entirely.
func baseLevel(vaSpaceSize uint64) uint {
	switch {
	case vaSpaceSize > levelBlockSize(0):
		return 0
	case vaSpaceSize > levelBlockSize(1):
		return 1
	case vaSpaceSize > levelBlockSize(2):
		return 2
	default:
		return 3
	}
}

// baseTableEntries returns the entry count of the single table at the initial
// lookup level.
func baseTableEntries(vaSpaceSize uint64) int {
	return int(vaSpaceSize >> addrShift(baseLevel(vaSpaceSize)))
}
