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

// Descriptor is one 64-bit ARMv8 long-descriptor translation table entry.
type Descriptor uint64

// descClass is the decoded role of a descriptor at a known level. The raw
// type bits are ambiguous: table and page descriptors share an encoding and
// are told apart by level.
type descClass int

const (
	classInvalid descClass = iota
	classBlock
	classTable
	classPage
)

func (c descClass) String() string {
	switch c {
	case classInvalid:
		return "invalid"
	case classBlock:
		return "block"
	case classTable:
		return "table"
	case classPage:
		return "page"
	}
	return fmt.Sprintf("descClass(%d)", int(c))
}

// classify decodes the descriptor's role at the given lookup level.
func (d Descriptor) classify(level uint) descClass {
	switch uint64(d) & descMask {
	case blockDesc:
		if level == levelMax {
			// Encoding 0b01 is reserved at level 3.
			return classInvalid
		}
		return classBlock
	case tableDesc:
		if level == levelMax {
			return classPage
		}
		return classTable
	default:
		return classInvalid
	}
}

// Valid reports whether the descriptor is anything other than invalid.
func (d Descriptor) Valid() bool {
	return uint64(d)&descMask != invalidDesc
}

// Address returns the output or next-level table address held in the
// descriptor payload.
func (d Descriptor) Address() uint64 {
	return uint64(d) & tableAddrMask
}

// readOnly reports whether AP[2] denies writes.
func (d Descriptor) readOnly() bool {
	return uint64(d)&apROBit != 0
}

// nonSecure reports the NS bit.
func (d Descriptor) nonSecure() bool {
	return uint64(d)&nsBit != 0
}

// memoryType decodes the MAIR attribute index back into a memory type.
func (d Descriptor) memoryType() hostarch.MemoryType {
	switch (uint64(d) >> lowerAttrsShift) & attrIndexMask {
	case attrDeviceIndex:
		return hostarch.MemoryTypeDevice
	case attrNonCacheableIndex:
		return hostarch.MemoryTypeNonCacheable
	default:
		return hostarch.MemoryTypeWriteBack
	}
}

// attrs reconstructs the attribute word encoded in a leaf descriptor.
// xnMask is the execute-never mask for the context's translation regime.
func (d Descriptor) attrs(xnMask uint64) Attr {
	attr := Attr(d.memoryType())
	if !d.readOnly() {
		attr |= PermRW
	}
	if d.nonSecure() {
		attr |= NonSecure
	}
	if uint64(d)&xnMask != 0 {
		attr |= ExecuteNever
	}
	return attr
}

// newTableDescriptor builds a table descriptor pointing at the sub-table with
// the given physical address.
func newTableDescriptor(tablePA uint64) Descriptor {
	return Descriptor(tableDesc | tablePA)
}

// newBlockDescriptor builds the block (or, at the deepest level, page)
// descriptor mapping pa with the given attributes.
//
// The access flag is always set: the engine does not manage access-flag
// faults. Device memory is always execute-never, to rule out speculative
// fetches from read-sensitive peripherals. Writable normal memory is also
// always execute-never; SCTLR.WXN enforces that independently, the bit is set
// here so an MMU-off observer reading the tables sees the same policy.
func newBlockDescriptor(attr Attr, pa uint64, level uint, xnMask uint64) Descriptor {
	if pa&levelBlockMask(level) != 0 {
		panic(fmt.Sprintf("xlat: PA %#x unaligned for level %d block", pa, level))
	}

	desc := pa
	if level == levelMax {
		desc |= pageDesc
	} else {
		desc |= blockDesc
	}
	if attr.NonSecure() {
		desc |= nsBit
	}
	if attr.ReadOnly() {
		desc |= apROBit
	}
	desc |= accessFlagBit

	// Device memory and non-cacheable normal memory are coherent for all
	// observers and architecturally outer-shareable; the shareability
	// field is still written for clarity in dumps.
	switch attr.MemoryType() {
	case hostarch.MemoryTypeDevice:
		desc |= attrDeviceIndex<<lowerAttrsShift | outerShareable
		desc |= xnMask
	case hostarch.MemoryTypeNonCacheable:
		desc |= attrNonCacheableIndex<<lowerAttrsShift | outerShareable
		if !attr.ReadOnly() || attr.ExecuteNever() {
			desc |= xnMask
		}
	default:
		desc |= attrWBWAIndex<<lowerAttrsShift | innerShareable
		if !attr.ReadOnly() || attr.ExecuteNever() {
			desc |= xnMask
		}
	}

	return Descriptor(desc)
}
