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

import "xlat.dev/xlat/pkg/log"

var levelSpacers = [levelMax + 1]string{
	"[LV0] ",
	"  [LV1] ",
	"    [LV2] ",
	"      [LV3] ",
}

// logRegions logs the current region list.
func (c *Context) logRegions() {
	if !log.IsLogging(log.Debug) {
		return
	}
	log.Debugf("xlat: region list:")
	for i := range c.regions {
		if c.regions[i].Size == 0 {
			break
		}
		log.Debugf("xlat:  %s", c.regions[i])
	}
}

// Dump logs the context configuration and the whole descriptor tree at Debug
// level. Runs of invalid descriptors are elided after the first.
func (c *Context) Dump() {
	log.Debugf("xlat: translation tables state:")
	log.Debugf("xlat:   targeted EL: %d", c.el)
	log.Debugf("xlat:   max allowed PA: %#x", c.paMax)
	log.Debugf("xlat:   max allowed VA: %#x", uintptr(c.vaMax))
	log.Debugf("xlat:   max mapped PA: %#x", c.mappedPA)
	log.Debugf("xlat:   max mapped VA: %#x", uintptr(c.mappedVA))
	log.Debugf("xlat:   initial lookup level: %d (%d entries)", c.baseLevel, len(c.baseTable))
	log.Debugf("xlat:   used %d sub-tables out of %d", c.pool.used(), len(c.pool.tables))

	c.dumpTable(0, c.baseTable, c.baseLevel)
}

func (c *Context) dumpTable(tableBaseVA uint64, entries []Descriptor, level uint) {
	invalidRun := 0
	entryVA := tableBaseVA

	for _, desc := range entries {
		switch desc.classify(level) {
		case classInvalid:
			if invalidRun == 0 {
				log.Debugf("xlat: %sVA:%#x size:%#x", levelSpacers[level], entryVA, levelBlockSize(level))
			}
			invalidRun++

		case classTable:
			c.endInvalidRun(level, invalidRun)
			invalidRun = 0
			// No PA: a table descriptor maps nothing directly.
			log.Debugf("xlat: %sVA:%#x size:%#x", levelSpacers[level], entryVA, levelBlockSize(level))
			sub := c.pool.tableFor(desc)
			c.dumpTable(entryVA, sub.entries, level+1)

		default:
			c.endInvalidRun(level, invalidRun)
			invalidRun = 0
			log.Debugf("xlat: %sVA:%#x PA:%#x size:%#x %s", levelSpacers[level],
				entryVA, desc.Address(), levelBlockSize(level), desc.attrs(c.xnMask))
		}

		entryVA += levelBlockSize(level)
	}

	c.endInvalidRun(level, invalidRun)
}

func (c *Context) endInvalidRun(level uint, run int) {
	if run > 1 {
		log.Debugf("xlat: %s(%d invalid descriptors omitted)", levelSpacers[level], run-1)
	}
}
