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
	"testing"

	"github.com/google/go-cmp/cmp"

	"xlat.dev/xlat/pkg/hostarch"
)

const (
	kib = 1 << 10
	mib = 1 << 20
	gib = 1 << 30
)

// newTestContext builds the reference test configuration: 32-bit VA and PA
// spaces (base level 1, 4 base entries), 8 region slots, 4 sub-tables,
// dynamic regions enabled, EL1.
func newTestContext(t *testing.T) (*Context, *SoftArch) {
	t.Helper()
	arch := &SoftArch{EL: 1}
	c, err := New(Config{
		MaxRegions:    8,
		MaxTables:     4,
		VASpaceSize:   1 << 32,
		PASpaceSize:   1 << 32,
		EL:            1,
		EnableDynamic: true,
		Arch:          arch,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, arch
}

// mapping is one leaf descriptor as seen by a table walk.
type mapping struct {
	VA    uint64
	Size  uint64
	PA    uint64
	Attr  Attr
	Level uint
}

// leafMappings walks the whole tree and returns every block and page
// descriptor in VA order.
func leafMappings(c *Context) []mapping {
	var out []mapping
	var walk func(baseVA uint64, entries []Descriptor, level uint)
	walk = func(baseVA uint64, entries []Descriptor, level uint) {
		for i, d := range entries {
			va := baseVA + uint64(i)*levelBlockSize(level)
			switch d.classify(level) {
			case classTable:
				walk(va, c.pool.tableFor(d).entries, level+1)
			case classBlock, classPage:
				out = append(out, mapping{
					VA:    va,
					Size:  levelBlockSize(level),
					PA:    d.Address(),
					Attr:  d.attrs(c.xnMask),
					Level: level,
				})
			}
		}
	}
	walk(0, c.baseTable, c.baseLevel)
	return out
}

func checkMappings(t *testing.T, c *Context, want []mapping) {
	t.Helper()
	if diff := cmp.Diff(want, leafMappings(c)); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}
}

// treeState is a deep copy of every descriptor and refcount, for
// byte-identity comparisons around failed or round-tripped operations.
type treeState struct {
	Base   []Descriptor
	Tables [][]Descriptor
	Refs   []int
	Next   int
}

func captureTree(c *Context) treeState {
	s := treeState{
		Base:   append([]Descriptor(nil), c.baseTable...),
		Tables: make([][]Descriptor, len(c.pool.tables)),
		Refs:   append([]int(nil), c.pool.refs...),
		Next:   c.pool.next,
	}
	for i := range c.pool.tables {
		s.Tables[i] = append([]Descriptor(nil), c.pool.tables[i]...)
	}
	return s
}

func checkTreeEqual(t *testing.T, want, got treeState) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree state mismatch (-want +got):\n%s", diff)
	}
}

func TestBaseLevelGeometry(t *testing.T) {
	for _, tc := range []struct {
		vaSize  uint64
		level   uint
		entries int
	}{
		{1 << 32, 1, 4},
		{1 << 30, 2, 512},
		{512 * gib, 1, 512},
		{1 << 48, 0, 512},
		{2 * mib, 3, 512},
		{1 << 21, 3, 512},
		{4 * kib, 3, 1},
	} {
		if got := baseLevel(tc.vaSize); got != tc.level {
			t.Errorf("baseLevel(%#x) = %d, want %d", tc.vaSize, got, tc.level)
		}
		if got := baseTableEntries(tc.vaSize); got != tc.entries {
			t.Errorf("baseTableEntries(%#x) = %d, want %d", tc.vaSize, got, tc.entries)
		}
	}
}

// A single 2 MiB normal-cacheable RW identity region lands as one block
// descriptor in a single level-2 sub-table; nothing deeper is allocated.
func TestSingleBlockRegion(t *testing.T) {
	c, _ := newTestContext(t)
	c.MustAddStatic(IdentityRegion(0x40000000, 2*mib, MemNormal|PermRW))
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Writable memory reads back execute-never regardless of the request.
	checkMappings(t, c, []mapping{
		{VA: 0x40000000, Size: 2 * mib, PA: 0x40000000, Attr: MemNormal | PermRW | ExecuteNever, Level: 2},
	})
	if got := c.pool.used(); got != 1 {
		t.Errorf("used %d sub-tables, want 1", got)
	}

	// The block must sit at index 0 of the sub-table for base entry 1.
	base := c.baseTable[0x40000000>>addrShift(1)]
	if base.classify(1) != classTable {
		t.Fatalf("base entry is %s, want table", base.classify(1))
	}
	sub := c.pool.tableFor(base)
	if got := sub.entries[0].classify(2); got != classBlock {
		t.Errorf("L2 entry 0 is %s, want block", got)
	}
}

// A region whose granularity equals its size maps as a single block at the
// coarsest legal level, with no sub-tables at all when that level is the
// base level.
func TestCoarsestBlock(t *testing.T) {
	c, _ := newTestContext(t)
	c.MustAddStatic(IdentityRegion(0x40000000, gib, MemNormal|PermRW))
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	checkMappings(t, c, []mapping{
		{VA: 0x40000000, Size: gib, PA: 0x40000000, Attr: MemNormal | PermRW | ExecuteNever, Level: 1},
	})
	if got := c.pool.used(); got != 0 {
		t.Errorf("used %d sub-tables, want 0", got)
	}
}

// Page granularity forces splitting all the way down even when a block would
// fit.
func TestGranularitySplit(t *testing.T) {
	c, _ := newTestContext(t)
	c.MustAddStatic(Region{
		PA: 0x40000000, VA: 0x40000000, Size: 2 * mib,
		Attr: MemNormal | PermRW, Granularity: 4 * kib,
	})
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	leaves := leafMappings(c)
	if len(leaves) != 512 {
		t.Fatalf("got %d leaves, want 512 pages", len(leaves))
	}
	for i, m := range leaves {
		want := mapping{
			VA: 0x40000000 + uint64(i)*4*kib, Size: 4 * kib,
			PA: 0x40000000 + uint64(i)*4*kib, Attr: MemNormal | PermRW | ExecuteNever, Level: 3,
		}
		if m != want {
			t.Fatalf("leaf %d = %+v, want %+v", i, m, want)
		}
	}
	if got := c.pool.used(); got != 2 {
		t.Errorf("used %d sub-tables, want 2", got)
	}
}

// Mapping a region at the very top of the VA space succeeds.
func TestLastLegalVA(t *testing.T) {
	c, _ := newTestContext(t)
	c.MustAddStatic(IdentityRegion(0xFFFFF000, 4*kib, MemNormal|PermRO|ExecuteNever))
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	checkMappings(t, c, []mapping{
		{VA: 0xFFFFF000, Size: 4 * kib, PA: 0xFFFFF000, Attr: MemROData, Level: 3},
	})
	if got := uint64(c.mappedVA); got != 0xFFFFFFFF {
		t.Errorf("mappedVA = %#x, want 0xFFFFFFFF", got)
	}
}

// A region exactly covering one entry at its level takes the fully-contained
// branch and becomes a single block, also when neighboring regions share the
// surrounding tables.
func TestBoundaryEntryOverlap(t *testing.T) {
	c, _ := newTestContext(t)
	c.MustAddStatic(IdentityRegion(0x1FF000, 4*kib, MemDevice|PermRW))
	c.MustAddStatic(IdentityRegion(0x200000, 2*mib, MemNormal|PermRW))
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	checkMappings(t, c, []mapping{
		{VA: 0x1FF000, Size: 4 * kib, PA: 0x1FF000, Attr: MemDevice | PermRW | ExecuteNever, Level: 3},
		{VA: 0x200000, Size: 2 * mib, PA: 0x200000, Attr: MemNormal | PermRW | ExecuteNever, Level: 2},
	})
}

// An inner read-only region nested in a larger RW region keeps its
// fine-grained mapping: the outer region is walked over it later and must
// not overwrite live descriptors.
func TestNestedRegionsKeepInnerMapping(t *testing.T) {
	c, _ := newTestContext(t)
	// Same VA-PA offset (identity), both static: legal nesting.
	c.MustAddStatic(IdentityRegion(0x40000000, 2*gib, MemNormal|PermRW))
	c.MustAddStatic(Region{
		PA: 0x40000000, VA: 0x40000000, Size: 2 * mib,
		Attr: MemNormal | PermRO | Execute, Granularity: 2 * mib,
	})
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	leaves := leafMappings(c)
	if len(leaves) == 0 || leaves[0] != (mapping{
		VA: 0x40000000, Size: 2 * mib, PA: 0x40000000, Attr: MemCode, Level: 2,
	}) {
		t.Fatalf("inner region lost its mapping: first leaf %+v", leaves[0])
	}
	// The rest of the first GiB is filled with 2 MiB blocks of the outer
	// region, and the second GiB maps as one level-1 block.
	if len(leaves) != 512+1 {
		t.Fatalf("got %d leaves, want 513", len(leaves))
	}
	last := leaves[len(leaves)-1]
	if last != (mapping{VA: 0x80000000, Size: gib, PA: 0x80000000, Attr: MemNormal | PermRW | ExecuteNever, Level: 1}) {
		t.Errorf("outer region tail leaf = %+v", last)
	}
}

func TestTranslate(t *testing.T) {
	c, _ := newTestContext(t)
	c.MustAddStatic(Region{PA: 0x80000000, VA: 0x00200000, Size: 2 * mib, Attr: MemNormal | PermRW})
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	pa, attr, err := c.Translate(hostarch.Addr(0x00200000 + 0x1234))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if pa != 0x80001234 {
		t.Errorf("pa = %#x, want 0x80001234", pa)
	}
	if attr != MemNormal|PermRW|ExecuteNever {
		t.Errorf("attr = %s", attr)
	}

	if _, _, err := c.Translate(0x00400000); err == nil {
		t.Error("Translate of unmapped VA succeeded")
	}
}

func TestMaxMappedPA(t *testing.T) {
	arch := &SoftArch{EL: 1}
	c, err := New(Config{
		MaxRegions: 4, MaxTables: 2,
		VASpaceSize: 1 << 32, PASpaceSize: 1 << 32,
		EL: 1, Arch: arch,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.MustAddStatic(IdentityRegion(0x40000000, 2*mib, MemNormal|PermRW))
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Static-only: the highest mapped PA is final.
	if got := c.MaxMappedPA(); got != 0x401FFFFF {
		t.Errorf("static MaxMappedPA = %#x, want 0x401FFFFF", got)
	}

	dc, _ := newTestContext(t)
	dc.MustAddStatic(IdentityRegion(0x40000000, 2*mib, MemNormal|PermRW))
	if err := dc.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Dynamic: a later add may push the maximum, report the configured
	// limit.
	if got := dc.MaxMappedPA(); got != 0xFFFFFFFF {
		t.Errorf("dynamic MaxMappedPA = %#x, want 0xFFFFFFFF", got)
	}
}
