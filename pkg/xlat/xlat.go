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

// Package xlat builds and maintains ARMv8 long-descriptor translation tables.
//
// A Context accumulates a sorted list of memory regions, then Init consumes
// the list to populate a tree of translation tables in the architectural
// descriptor format. With dynamic regions enabled, regions can also be added
// and removed after initialization, with TLB maintenance driven through the
// Arch hooks. The caller hands BaseTable, MaxMappedPA and MaxVA to whatever
// programs the MMU registers; that sequence is outside this package.
package xlat

import (
	"fmt"
	"time"

	"xlat.dev/xlat/pkg/hostarch"
	"xlat.dev/xlat/pkg/log"
)

// Failures on the post-initialization paths can repeat at high rate when a
// caller probes for free space in a retry loop; their warnings are rate
// limited. The errors themselves are always returned.
var warn = log.BasicRateLimitedLogger(5 * time.Second)

// Config sizes and parameterizes a Context. The C-heritage compile-time
// knobs (region capacity, table capacity, address-space sizes, dynamic
// support) are runtime fields here.
type Config struct {
	// MaxRegions is the capacity of the region list.
	MaxRegions int

	// MaxTables is the number of sub-tables in the pool. The single table
	// at the initial lookup level is separate and always present.
	MaxTables int

	// VASpaceSize is the size in bytes of the virtual address space. Must
	// be a power of two no larger than 1 << 48. It determines the initial
	// lookup level and the entry count of the base table.
	VASpaceSize uint64

	// PASpaceSize is the size in bytes of the physical address space.
	PASpaceSize uint64

	// EL is the exception level whose translation regime the tables are
	// for. Zero means the level the caller is executing at, queried from
	// the Arch hooks at Init time.
	EL uint

	// EnableDynamic selects the refcounted table pool and permits
	// AddDynamic and RemoveDynamic after initialization.
	EnableDynamic bool

	// TablesPA is the physical address of the first pool table,
	// tableSize apart each. Table descriptors store these addresses.
	TablesPA uint64

	// Arch supplies the TLB maintenance and regime queries. Nil selects a
	// recording SoftArch, suitable when no MMU will consume the tables.
	Arch Arch
}

// Context owns one set of translation tables and the region list describing
// them. It is not safe for concurrent use; the privileged environment this
// engine is written for serializes all calls.
type Context struct {
	arch Arch

	// regions is the sorted region list. The final slot is a permanent
	// zero sentinel; the list is full when the slot before it is taken.
	regions []Region

	// baseTable is the single table at the initial lookup level.
	baseTable []Descriptor
	baseLevel uint

	pool *tablePool

	// vaMax and paMax are the configured address-space limits (inclusive
	// last addresses).
	vaMax hostarch.Addr
	paMax uint64

	// mappedVA and mappedPA track the highest VA and PA any current
	// region reaches.
	mappedVA hostarch.Addr
	mappedPA uint64

	el     uint
	xnMask uint64

	dynamic     bool
	initialized bool
}

// New returns a Context with empty tables and an empty region list.
func New(cfg Config) (*Context, error) {
	if cfg.MaxRegions <= 0 || cfg.MaxTables < 0 {
		return nil, fmt.Errorf("%w: bad capacities (regions %d, tables %d)", ErrInvalid, cfg.MaxRegions, cfg.MaxTables)
	}
	if cfg.VASpaceSize < hostarch.PageSize || cfg.VASpaceSize > 1<<hostarch.AddrSpaceBits ||
		cfg.VASpaceSize&(cfg.VASpaceSize-1) != 0 {
		return nil, fmt.Errorf("%w: VA space size %#x is not a power of two within the architecture", ErrInvalid, cfg.VASpaceSize)
	}
	if cfg.PASpaceSize < hostarch.PageSize || cfg.PASpaceSize > 1<<hostarch.AddrSpaceBits {
		return nil, fmt.Errorf("%w: bad PA space size %#x", ErrInvalid, cfg.PASpaceSize)
	}
	if cfg.EL > 3 {
		return nil, fmt.Errorf("%w: bad exception level %d", ErrInvalid, cfg.EL)
	}
	if cfg.TablesPA&(tableSize-1) != 0 || cfg.TablesPA > tableAddrMask {
		return nil, fmt.Errorf("%w: bad table pool address %#x", ErrInvalid, cfg.TablesPA)
	}

	arch := cfg.Arch
	if arch == nil {
		arch = &SoftArch{}
	}

	c := &Context{
		arch:      arch,
		regions:   make([]Region, cfg.MaxRegions+1),
		baseTable: make([]Descriptor, baseTableEntries(cfg.VASpaceSize)),
		baseLevel: baseLevel(cfg.VASpaceSize),
		pool:      newTablePool(cfg.MaxTables, cfg.TablesPA, cfg.EnableDynamic),
		vaMax:     hostarch.Addr(cfg.VASpaceSize - 1),
		paMax:     cfg.PASpaceSize - 1,
		el:        cfg.EL,
		dynamic:   cfg.EnableDynamic,
	}
	return c, nil
}

// Initialized reports whether Init has completed.
func (c *Context) Initialized() bool {
	return c.initialized
}

// AddStatic validates the region and inserts it into the region list. Static
// regions can only be added before Init and are never removed.
func (c *Context) AddStatic(r Region) error {
	if r.Size == 0 {
		return nil
	}
	if c.initialized {
		return fmt.Errorf("%w: static regions must be added before initialization", ErrInvalid)
	}
	if r.Granularity == 0 {
		r.Granularity = r.Size
	}
	if err := c.checkRegion(&r); err != nil {
		return err
	}
	c.insertRegion(&r)
	return nil
}

// MustAddStatic is AddStatic for the platform memory map: a rejected static
// region means the image cannot build the address space it needs to run, so
// the error is a programming bug and panics.
func (c *Context) MustAddStatic(r Region) {
	if err := c.AddStatic(r); err != nil {
		log.Warningf("xlat: %v", err)
		panic(err)
	}
}

// Add adds a list of static regions.
func (c *Context) Add(regions []Region) error {
	for _, r := range regions {
		if err := c.AddStatic(r); err != nil {
			return err
		}
	}
	return nil
}

// Init consumes the region list and populates the translation tables. After
// Init only dynamic regions may change the mappings.
func (c *Context) Init() error {
	if c.initialized {
		return fmt.Errorf("%w: context already initialized", ErrInvalid)
	}

	c.logRegions()

	if c.el == 0 {
		c.el = c.arch.CurrentEL()
	}
	if c.el < 1 || c.el > 3 {
		return fmt.Errorf("%w: bad exception level %d", ErrInvalid, c.el)
	}
	c.xnMask = c.arch.XNMask(c.el)

	if c.paMax > c.arch.MaxSupportedPA() {
		return fmt.Errorf("%w: configured PA limit %#x exceeds supported %#x",
			ErrOutOfRange, c.paMax, c.arch.MaxSupportedPA())
	}

	// All tables must be zeroed before mapping any region.
	clear(c.baseTable)
	c.pool.reset()

	base := tableRef{entries: c.baseTable, index: baseTableIndex}
	for i := range c.regions {
		mm := &c.regions[i]
		if mm.Size == 0 {
			break
		}
		end := c.mapRegion(mm, 0, base, c.baseLevel)
		if end != uint64(mm.VA)+mm.Size-1 {
			return fmt.Errorf("%w: not enough sub-tables to map %s", ErrNoMemory, mm)
		}
	}

	c.initialized = true

	if log.IsLogging(log.Debug) {
		c.Dump()
	}
	return nil
}

// AddDynamic validates and inserts the region and, when the context is
// already initialized, maps it immediately. A partial mapping failure is
// rolled back before returning; the tables are then exactly as they were.
func (c *Context) AddDynamic(r Region) error {
	if !c.dynamic {
		return fmt.Errorf("%w: dynamic regions are not enabled", ErrInvalid)
	}
	if r.Size == 0 {
		return nil
	}
	if r.Granularity == 0 {
		r.Granularity = r.Size
	}
	r.Attr |= attrDynamic

	if err := c.checkRegion(&r); err != nil {
		return err
	}
	idx := c.insertRegion(&r)

	if c.initialized {
		base := tableRef{entries: c.baseTable, index: baseTableIndex}
		mm := &c.regions[idx]
		end := c.mapRegion(mm, 0, base, c.baseLevel)
		if end != uint64(mm.VA)+mm.Size-1 {
			// Unmap whatever prefix got mapped, then drop the
			// region.
			if end > uint64(mm.VA) {
				undo := Region{VA: mm.VA, Size: end - uint64(mm.VA)}
				c.unmapRegion(&undo, 0, base, c.baseLevel)
			}
			c.deleteRegion(idx)
			warn.Warningf("xlat: not enough sub-tables to map %s", r)
			return fmt.Errorf("%w: not enough sub-tables to map %s", ErrNoMemory, r)
		}

		// Ensure the descriptors are visible. No invalidation is
		// needed: they only replaced invalid descriptors, which are
		// never TLB-cached.
		c.arch.TLBSync()
	}

	return nil
}

// RemoveDynamic unmaps and removes the dynamic region with the exact given
// base VA and size.
func (c *Context) RemoveDynamic(va hostarch.Addr, size uint64) error {
	if !c.dynamic {
		return fmt.Errorf("%w: dynamic regions are not enabled", ErrInvalid)
	}
	idx := c.findRegion(va, size)
	if idx < 0 {
		warn.Warningf("xlat: no region with VA %#x size %#x", uintptr(va), size)
		return fmt.Errorf("%w: no region with VA %#x size %#x", ErrInvalid, uintptr(va), size)
	}
	if !c.regions[idx].Attr.Dynamic() {
		warn.Warningf("xlat: cannot remove static region %s", c.regions[idx])
		return fmt.Errorf("%w: region %s is static", ErrPermission, c.regions[idx])
	}

	if c.initialized {
		base := tableRef{entries: c.baseTable, index: baseTableIndex}
		c.unmapRegion(&c.regions[idx], 0, base, c.baseLevel)
		c.arch.TLBSync()
	}

	c.deleteRegion(idx)
	return nil
}

// BaseTable returns the table at the initial lookup level, for the MMU
// enable sequence to install as the translation base.
func (c *Context) BaseTable() []Descriptor {
	return c.baseTable
}

// BaseLevel returns the initial lookup level.
func (c *Context) BaseLevel() uint {
	return c.baseLevel
}

// MaxVA returns the configured last virtual address.
func (c *Context) MaxVA() hostarch.Addr {
	return c.vaMax
}

// MaxMappedPA returns the highest physical address the MMU must be able to
// output. With dynamic regions enabled a later add can push the mapped
// maximum up, so the configured limit is reported instead.
func (c *Context) MaxMappedPA() uint64 {
	if c.dynamic {
		return c.paMax
	}
	return c.mappedPA
}

// EL returns the targeted exception level. Before Init a context configured
// for "current" reports zero.
func (c *Context) EL() uint {
	return c.el
}
