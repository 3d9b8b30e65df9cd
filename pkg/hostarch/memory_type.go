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

package hostarch

import "fmt"

// MemoryType specifies CPU memory access behavior.
//
// Values are ordered from weakest to strongest: going up the list the types
// allow progressively more reordering, caching and speculation. The engine
// relies only on this ordering when reasoning about overlapping regions.
type MemoryType uint8

const (
	// MemoryTypeDevice is ARM64 Device-nGnRE memory. Accesses are
	// non-gathering and non-reordering, appropriate for MMIO peripherals.
	MemoryTypeDevice MemoryType = iota

	// MemoryTypeNonCacheable is Normal non-cacheable memory, equivalent to
	// Linux's pgprot_writecombine().
	MemoryTypeNonCacheable

	// MemoryTypeWriteBack is Normal inner/outer write-back cacheable
	// memory, the default for RAM.
	MemoryTypeWriteBack

	// NumMemoryTypes is the number of memory types.
	NumMemoryTypes
)

// String implements fmt.Stringer.String.
func (mt MemoryType) String() string {
	switch mt {
	case MemoryTypeDevice:
		return "Device"
	case MemoryTypeNonCacheable:
		return "NonCacheable"
	case MemoryTypeWriteBack:
		return "WriteBack"
	default:
		return fmt.Sprintf("%d", mt)
	}
}

// ShortString returns a compact string representing the MemoryType, matching
// the mnemonics used in translation-table dumps.
func (mt MemoryType) ShortString() string {
	switch mt {
	case MemoryTypeDevice:
		return "DEV"
	case MemoryTypeNonCacheable:
		return "NC"
	case MemoryTypeWriteBack:
		return "MEM"
	default:
		return fmt.Sprintf("%02d", mt)
	}
}
