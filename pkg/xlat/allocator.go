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

// tableRef is a handle on one translation table: its descriptor slots plus
// its pool index. Carrying the index in the handle makes refcount updates
// O(1) instead of a pointer-identity scan over the pool.
type tableRef struct {
	entries []Descriptor

	// index is the pool slot, or baseTableIndex for the single table at
	// the initial lookup level, which is never refcounted and never
	// reclaimed.
	index int
}

const baseTableIndex = -1

// tablePool owns the fixed pool of sub-tables.
//
// In static-only mode tables are handed out in slot order by a bump counter
// and never reclaimed. With dynamic regions enabled each table instead
// carries a count of the regions currently contributing descriptors to it; a
// table with count zero is empty and allocatable.
type tablePool struct {
	// tables is the backing storage, one tableEntries-slot table per
	// element.
	tables [][]Descriptor

	// refs counts contributing regions per table. Nil in static-only
	// mode.
	refs []int

	// next is the bump allocation cursor in static-only mode.
	next int

	// basePA is the physical address of slot 0. Slot i sits at
	// basePA + i*tableSize; table descriptors store these addresses.
	basePA uint64
}

func newTablePool(count int, basePA uint64, dynamic bool) *tablePool {
	p := &tablePool{
		tables: make([][]Descriptor, count),
		basePA: basePA,
	}
	for i := range p.tables {
		p.tables[i] = make([]Descriptor, tableEntries)
	}
	if dynamic {
		p.refs = make([]int, count)
	}
	return p
}

// reset zeroes every table and forgets all allocations.
func (p *tablePool) reset() {
	for i := range p.tables {
		clear(p.tables[i])
	}
	clear(p.refs)
	p.next = 0
}

// empty returns a handle on an empty table, or ok == false if the pool is
// exhausted.
func (p *tablePool) empty() (tableRef, bool) {
	if p.refs == nil {
		if p.next >= len(p.tables) {
			return tableRef{}, false
		}
		t := tableRef{entries: p.tables[p.next], index: p.next}
		p.next++
		return t, true
	}
	for i := range p.refs {
		if p.refs[i] == 0 {
			return tableRef{entries: p.tables[i], index: i}, true
		}
	}
	return tableRef{}, false
}

// physicalFor returns the physical address of the given pool table.
func (p *tablePool) physicalFor(t tableRef) uint64 {
	return p.basePA + uint64(t.index)*tableSize
}

// tableFor resolves a table descriptor's payload back into a pool handle.
// This is the only site where a descriptor is reinterpreted as a table.
func (p *tablePool) tableFor(d Descriptor) tableRef {
	pa := d.Address()
	i := int((pa - p.basePA) / tableSize)
	if pa < p.basePA || i >= len(p.tables) {
		panic(fmt.Sprintf("xlat: descriptor %#x does not reference a pool table", uint64(d)))
	}
	return tableRef{entries: p.tables[i], index: i}
}

// incRegions records one more region contributing descriptors to the table.
// No-op for the base table and in static-only mode.
func (p *tablePool) incRegions(t tableRef) {
	if p.refs != nil && t.index != baseTableIndex {
		p.refs[t.index]++
	}
}

// decRegions records one region no longer contributing to the table.
func (p *tablePool) decRegions(t tableRef) {
	if p.refs != nil && t.index != baseTableIndex {
		p.refs[t.index]--
	}
}

// isEmpty reports whether no region contributes to the table. Only
// meaningful with dynamic regions enabled.
func (p *tablePool) isEmpty(t tableRef) bool {
	return p.refs[t.index] == 0
}

// used returns the number of tables currently in use.
func (p *tablePool) used() int {
	if p.refs == nil {
		return p.next
	}
	n := 0
	for _, c := range p.refs {
		if c != 0 {
			n++
		}
	}
	return n
}
