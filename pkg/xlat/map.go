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

import "fmt"

// overlap classifies how a region relates to one table entry's VA interval.
type overlap int

const (
	overlapNone overlap = iota

	// overlapPartial: the intervals intersect but the entry is not
	// contained in the region.
	overlapPartial

	// overlapFull: the entry's whole interval lies inside the region.
	overlapFull
)

// classifyOverlap uses the tight containment predicate: full when the entry
// lies inside the region, partial when they merely intersect.
func classifyOverlap(regionBase, regionEnd, entryBase, entryEnd uint64) overlap {
	if regionBase <= entryBase && regionEnd >= entryEnd {
		return overlapFull
	}
	if regionBase <= entryEnd && regionEnd >= entryBase {
		return overlapPartial
	}
	return overlapNone
}

// action is what the mapper decides to do with one table entry, based on the
// entry's current descriptor and the region being mapped.
type action int

const (
	// actionNone: leave the entry alone. Either the region does not touch
	// it, or another region already mapped it and must not be
	// overwritten.
	actionNone action = iota

	// actionWriteBlock: write a block descriptor, or a page descriptor at
	// the deepest level.
	actionWriteBlock

	// actionCreateTable: allocate an empty sub-table, point the entry at
	// it and recurse into it.
	actionCreateTable

	// actionRecurse: the entry already holds a table descriptor; recurse
	// into the sub-table.
	actionRecurse
)

// mapAction decides the action for one entry at the given level covering
// [entryVA, entryVA+span). destPA is the physical address the region maps
// entryVA to; it is only meaningful when the entry lies inside the region.
func (c *Context) mapAction(mm *Region, desc Descriptor, destPA, entryVA uint64, level uint) action {
	regionEnd := uint64(mm.VA) + mm.Size - 1
	entryEnd := entryVA + levelBlockSize(level) - 1

	switch classifyOverlap(uint64(mm.VA), regionEnd, entryVA, entryEnd) {
	case overlapFull:
		// The entry could describe the whole translation at this
		// granularity.
		if level == levelMax {
			if desc.classify(level) == classPage {
				// Another region got here first; keep it.
				return actionNone
			}
			return actionWriteBlock
		}
		switch desc.classify(level) {
		case classTable:
			return actionRecurse
		case classInvalid:
			// A block descriptor needs a level that allows blocks,
			// an output address aligned to the block size, and a
			// region granularity that does not ask for a finer
			// split.
			if level < minLevelBlockDesc ||
				destPA&levelBlockMask(level) != 0 ||
				mm.Granularity < levelBlockSize(level) {
				return actionCreateTable
			}
			return actionWriteBlock
		default:
			// Another region's block; keep it.
			return actionNone
		}

	case overlapPartial:
		// The entry cannot describe the whole translation; a finer
		// table is needed. Impossible at the deepest level: page
		// alignment of VA, PA and size was checked on add.
		if level >= levelMax {
			panic(fmt.Sprintf("xlat: partial overlap at level %d mapping %s", level, mm))
		}
		if desc.classify(level) == classTable {
			return actionRecurse
		}
		if desc.Valid() {
			panic(fmt.Sprintf("xlat: partial overlap with %s descriptor mapping %s", desc.classify(level), mm))
		}
		return actionCreateTable

	default:
		return actionNone
	}
}

// mapRegion recursively writes the descriptors mapping mm into the table
// spanning VAs from tableBaseVA at the given level. On success it returns the
// VA of the last byte mapped; on sub-table exhaustion it returns the VA at
// which it gave up, which the caller compares against the region end to
// detect partial failure.
func (c *Context) mapRegion(mm *Region, tableBaseVA uint64, t tableRef, level uint) uint64 {
	regionEnd := uint64(mm.VA) + mm.Size - 1

	var idx int
	entryVA := tableBaseVA
	if uint64(mm.VA) > tableBaseVA {
		// Skip ahead to the first entry the region touches.
		entryVA = uint64(mm.VA) &^ levelBlockMask(level)
		idx = int((entryVA - tableBaseVA) >> addrShift(level))
	}

	// Record that this region contributes descriptors through this table.
	c.pool.incRegions(t)

	// A failure below VA failEnd is rolled back by unmapping the prefix
	// [mm.VA, failEnd), which revisits and un-counts every table that got
	// descriptors. A table where this region mapped nothing is not
	// revisited; un-count it here so failed adds leave no trace.
	fail := func(failEnd uint64) uint64 {
		if failEnd <= max(uint64(mm.VA), tableBaseVA) {
			c.pool.decRegions(t)
		}
		return failEnd
	}

	for idx < len(t.entries) {
		desc := t.entries[idx]
		destPA := mm.PA + (entryVA - uint64(mm.VA))

		switch c.mapAction(mm, desc, destPA, entryVA, level) {
		case actionWriteBlock:
			t.entries[idx] = newBlockDescriptor(mm.Attr, destPA, level, c.xnMask)

		case actionCreateTable:
			sub, ok := c.pool.empty()
			if !ok {
				// Pool exhausted; report how far we got.
				return fail(entryVA)
			}
			t.entries[idx] = newTableDescriptor(c.pool.physicalFor(sub))
			end := c.mapRegion(mm, entryVA, sub, level+1)
			if end != entryVA+levelBlockSize(level)-1 {
				if allInvalid(sub.entries) {
					// The new table took no descriptors
					// before the failure deeper down; the
					// recursion has already un-counted it.
					t.entries[idx] = Descriptor(invalidDesc)
				}
				return fail(end)
			}

		case actionRecurse:
			sub := c.pool.tableFor(desc)
			end := c.mapRegion(mm, entryVA, sub, level+1)
			if end != entryVA+levelBlockSize(level)-1 {
				return fail(end)
			}
		}

		idx++
		entryVA += levelBlockSize(level)
		if regionEnd <= entryVA {
			break
		}
	}

	return entryVA - 1
}

func allInvalid(entries []Descriptor) bool {
	for _, d := range entries {
		if d != Descriptor(invalidDesc) {
			return false
		}
	}
	return true
}
