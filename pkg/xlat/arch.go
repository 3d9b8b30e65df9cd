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

// Arch is the set of architectural hooks the engine consumes. The MMU enable
// sequence that owns the system registers provides the real implementation;
// the engine only ever drives TLB maintenance and queries regime facts
// through it.
type Arch interface {
	// InvalidateTLBVA broadcasts an invalidation of the TLB entries for
	// the given VA in the translation regime of the given exception
	// level.
	InvalidateTLBVA(va hostarch.Addr, el uint)

	// TLBSync completes an invalidation sequence: a DSB on the
	// inner-shareable domain so the invalidations are observed before any
	// subsequent access under translation.
	TLBSync()

	// CurrentEL returns the exception level the caller executes at. Used
	// when a context is configured to target the current level.
	CurrentEL() uint

	// XNMask returns the execute-never descriptor bits for the
	// translation regime of the given exception level: the single XN bit
	// for regimes with one VA range, UXN|PXN for EL1&0.
	XNMask(el uint) uint64

	// MaxSupportedPA returns the largest physical address the
	// implementation supports, derived from ID_AA64MMFR0_EL1.PARange.
	MaxSupportedPA() uint64
}

// SoftArch is a software-only Arch for contexts whose tables are built and
// inspected without an MMU consuming them: tests, the dump CLI, and tables
// prepared for a lower exception level before handoff. TLB operations are
// recorded rather than executed.
type SoftArch struct {
	// EL is the exception level reported by CurrentEL. Zero means 1.
	EL uint

	// PABits is the supported physical address width. Zero means 48.
	PABits uint

	// Invalidations accumulates the VAs passed to InvalidateTLBVA, in
	// order.
	Invalidations []hostarch.Addr

	// Syncs counts TLBSync calls.
	Syncs int
}

// InvalidateTLBVA implements Arch.InvalidateTLBVA.
func (a *SoftArch) InvalidateTLBVA(va hostarch.Addr, el uint) {
	a.Invalidations = append(a.Invalidations, va)
}

// TLBSync implements Arch.TLBSync.
func (a *SoftArch) TLBSync() {
	a.Syncs++
}

// CurrentEL implements Arch.CurrentEL.
func (a *SoftArch) CurrentEL() uint {
	if a.EL == 0 {
		return 1
	}
	return a.EL
}

// XNMask implements Arch.XNMask.
func (a *SoftArch) XNMask(el uint) uint64 {
	if el == 1 {
		// EL1&0 supports two VA ranges; forbid fetch in both.
		return xnBit | pxnBit
	}
	return xnBit
}

// MaxSupportedPA implements Arch.MaxSupportedPA.
func (a *SoftArch) MaxSupportedPA() uint64 {
	if a.PABits == 0 {
		return 1<<hostarch.AddrSpaceBits - 1
	}
	return 1<<a.PABits - 1
}
