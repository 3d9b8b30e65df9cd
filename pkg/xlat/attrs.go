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
	"xlat.dev/xlat/pkg/log"
)

// findEntry walks the tree from the base table and returns the table slot
// holding the leaf descriptor that maps va, together with its level. ok is
// false if va is not mapped.
func (c *Context) findEntry(va uint64) (t tableRef, idx int, level uint, ok bool) {
	t = tableRef{entries: c.baseTable, index: baseTableIndex}

	for level = c.baseLevel; level <= levelMax; level++ {
		idx = int(va>>addrShift(level)) & (tableEntries - 1)
		if idx >= len(t.entries) {
			return tableRef{}, 0, 0, false
		}

		switch d := t.entries[idx]; d.classify(level) {
		case classInvalid:
			return tableRef{}, 0, 0, false
		case classBlock, classPage:
			return t, idx, level, true
		default:
			t = c.pool.tableFor(d)
		}
	}

	// classify never returns table at the deepest level, so the loop
	// cannot fall through.
	panic("xlat: table walk ran past the deepest level")
}

// ChangeMemAttributes changes the access permission and executability of the
// pages in [va, va+size), which must already be mapped at page granularity,
// and invalidates the TLB for each page. The memory type and security state
// of the mapping are left as they are.
//
// On error nothing has been changed.
func (c *Context) ChangeMemAttributes(va hostarch.Addr, size uint64, attr Attr) error {
	if !c.initialized {
		return fmt.Errorf("%w: context not initialized", ErrInvalid)
	}
	if !va.IsPageAligned() {
		warn.Warningf("xlat: VA %#x is not page-aligned", uintptr(va))
		return fmt.Errorf("%w: VA %#x is not page-aligned", ErrInvalid, uintptr(va))
	}
	if size == 0 || size&hostarch.PageMask != 0 {
		warn.Warningf("xlat: size %#x is not a positive multiple of the page size", size)
		return fmt.Errorf("%w: size %#x is not a positive multiple of the page size", ErrInvalid, size)
	}
	if !attr.ReadOnly() && !attr.ExecuteNever() {
		warn.Warningf("xlat: read-write executable memory is forbidden")
		return fmt.Errorf("%w: read-write executable memory is forbidden", ErrInvalid)
	}

	pages := size / hostarch.PageSize
	log.Debugf("xlat: changing attributes of %d pages at VA %#x to %s", pages, uintptr(va), attr)

	// First pass: verify every page is mapped by a page descriptor before
	// touching anything, so a failure leaves the tree unchanged.
	for i := uint64(0); i < pages; i++ {
		pageVA := uint64(va) + i*hostarch.PageSize
		_, _, level, ok := c.findEntry(pageVA)
		if !ok {
			warn.Warningf("xlat: VA %#x is not mapped", pageVA)
			return fmt.Errorf("%w: VA %#x is not mapped", ErrInvalid, pageVA)
		}
		if level != levelMax {
			warn.Warningf("xlat: VA %#x is mapped with %#x granularity, not %#x",
				pageVA, levelBlockSize(level), uint64(hostarch.PageSize))
			return fmt.Errorf("%w: VA %#x is mapped with %#x granularity, not %#x",
				ErrInvalid, pageVA, levelBlockSize(level), uint64(hostarch.PageSize))
		}
	}

	for i := uint64(0); i < pages; i++ {
		pageVA := uint64(va) + i*hostarch.PageSize
		t, idx, _, ok := c.findEntry(pageVA)
		if !ok {
			panic(fmt.Sprintf("xlat: VA %#x vanished between verification and update", pageVA))
		}

		desc := uint64(t.entries[idx]) &^ (apROBit | c.xnMask)
		if attr.ReadOnly() {
			desc |= apROBit
		}
		if attr.ExecuteNever() {
			desc |= c.xnMask
		}
		t.entries[idx] = Descriptor(desc)

		c.arch.InvalidateTLBVA(hostarch.Addr(pageVA), 1)
	}

	c.arch.TLBSync()
	return nil
}

// GetMemAttributes returns the attribute word encoded in the leaf descriptor
// mapping va.
func (c *Context) GetMemAttributes(va hostarch.Addr) (Attr, error) {
	if !c.initialized {
		return 0, fmt.Errorf("%w: context not initialized", ErrInvalid)
	}
	t, idx, _, ok := c.findEntry(uint64(va))
	if !ok {
		return 0, fmt.Errorf("%w: VA %#x is not mapped", ErrInvalid, uintptr(va))
	}
	return t.entries[idx].attrs(c.xnMask), nil
}

// Translate resolves va through the tree to the physical address and
// attributes of its mapping.
func (c *Context) Translate(va hostarch.Addr) (uint64, Attr, error) {
	if !c.initialized {
		return 0, 0, fmt.Errorf("%w: context not initialized", ErrInvalid)
	}
	t, idx, level, ok := c.findEntry(uint64(va))
	if !ok {
		return 0, 0, fmt.Errorf("%w: VA %#x is not mapped", ErrInvalid, uintptr(va))
	}
	d := t.entries[idx]
	pa := d.Address() + uint64(va)&levelBlockMask(level)
	return pa, d.attrs(c.xnMask), nil
}
