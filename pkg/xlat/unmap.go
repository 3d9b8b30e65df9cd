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

// unmapRegion is the mirror of mapRegion: it erases the descriptors mapping
// mm from the table spanning VAs from tableBaseVA, invalidating the TLB for
// every erased leaf and reclaiming sub-tables that no region contributes to
// anymore.
//
// Only dynamic regions are ever unmapped, and dynamic regions overlap
// nothing, so every descriptor inside the region belongs to it exclusively;
// only tables at the region's edges may be shared, and those are protected by
// their contribution counts.
func (c *Context) unmapRegion(mm *Region, tableBaseVA uint64, t tableRef, level uint) {
	regionEnd := uint64(mm.VA) + mm.Size - 1

	var idx int
	entryVA := tableBaseVA
	if uint64(mm.VA) > tableBaseVA {
		entryVA = uint64(mm.VA) &^ levelBlockMask(level)
		idx = int((entryVA - tableBaseVA) >> addrShift(level))
	}

	for idx < len(t.entries) {
		entryEnd := entryVA + levelBlockSize(level) - 1
		desc := t.entries[idx]

		switch classifyOverlap(uint64(mm.VA), regionEnd, entryVA, entryEnd) {
		case overlapFull:
			switch desc.classify(level) {
			case classPage, classBlock:
				t.entries[idx] = Descriptor(invalidDesc)
				c.arch.InvalidateTLBVA(hostarch.Addr(entryVA), c.el)
			case classTable:
				c.unmapTable(mm, desc, t, idx, entryVA, level)
			default:
				panic(fmt.Sprintf("xlat: unmapping VA %#x which is not mapped", entryVA))
			}

		case overlapPartial:
			// The region covers part of the entry, so the rest of
			// the entry belongs to this region's edge sub-table.
			// Impossible at the deepest level.
			if level >= levelMax {
				panic(fmt.Sprintf("xlat: partial overlap at level %d unmapping %s", level, mm))
			}
			if desc.classify(level) != classTable {
				panic(fmt.Sprintf("xlat: partial overlap with %s descriptor unmapping %s", desc.classify(level), mm))
			}
			c.unmapTable(mm, desc, t, idx, entryVA, level)
		}

		idx++
		entryVA += levelBlockSize(level)
		if regionEnd <= entryVA {
			break
		}
	}

	// This region no longer contributes descriptors through this table.
	c.pool.decRegions(t)
}

// unmapTable recurses into the sub-table behind t.entries[idx] and, if the
// recursion left it with no contributing regions, erases the table descriptor
// itself.
func (c *Context) unmapTable(mm *Region, desc Descriptor, t tableRef, idx int, entryVA uint64, level uint) {
	sub := c.pool.tableFor(desc)
	c.unmapRegion(mm, entryVA, sub, level+1)

	if c.pool.isEmpty(sub) {
		t.entries[idx] = Descriptor(invalidDesc)
		c.arch.InvalidateTLBVA(hostarch.Addr(entryVA), c.el)
	}
}
