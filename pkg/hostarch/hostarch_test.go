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

import "testing"

func TestAddrRounding(t *testing.T) {
	if got := Addr(0x1234).RoundDown(); got != 0x1000 {
		t.Errorf("RoundDown = %#x", uintptr(got))
	}
	if got, ok := Addr(0x1234).RoundUp(); !ok || got != 0x2000 {
		t.Errorf("RoundUp = %#x, %t", uintptr(got), ok)
	}
	if got, ok := Addr(0x1000).RoundUp(); !ok || got != 0x1000 {
		t.Errorf("RoundUp aligned = %#x, %t", uintptr(got), ok)
	}
	if _, ok := Addr(^uintptr(0) - 10).RoundUp(); ok {
		t.Error("RoundUp at the top of the address space did not overflow")
	}
}

func TestAddrAlignment(t *testing.T) {
	if !Addr(0x4000).IsPageAligned() {
		t.Error("0x4000 not page aligned")
	}
	if Addr(0x4001).IsPageAligned() {
		t.Error("0x4001 page aligned")
	}
	if got := Addr(0x4321).PageOffset(); got != 0x321 {
		t.Errorf("PageOffset = %#x", got)
	}
}

func TestAddLength(t *testing.T) {
	if end, ok := Addr(0x1000).AddLength(0x2000); !ok || end != 0x3000 {
		t.Errorf("AddLength = %#x, %t", uintptr(end), ok)
	}
	if _, ok := Addr(^uintptr(0)).AddLength(2); ok {
		t.Error("AddLength did not report wrap")
	}
}

func TestMemoryTypeOrdering(t *testing.T) {
	// The engine depends on device < non-cacheable < write-back.
	if !(MemoryTypeDevice < MemoryTypeNonCacheable && MemoryTypeNonCacheable < MemoryTypeWriteBack) {
		t.Error("memory types are not ordered weakest to strongest")
	}
}
