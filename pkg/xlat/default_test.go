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

import "testing"

func TestDefaultContextForwarders(t *testing.T) {
	old := defaultContext
	defer RegisterDefault(old)

	c, _ := newTestContext(t)
	RegisterDefault(c)

	if err := AddStatic(IdentityRegion(0x40000000, 2*mib, MemNormal|PermRW)); err != nil {
		t.Fatalf("AddStatic: %v", err)
	}
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := AddDynamic(IdentityRegion(0x0, 4*kib, MemDevice|PermRW)); err != nil {
		t.Fatalf("AddDynamic: %v", err)
	}
	if err := RemoveDynamic(0x0, 4*kib); err != nil {
		t.Fatalf("RemoveDynamic: %v", err)
	}
	if err := ChangeMemAttributes(0x40000000, 4*kib, MemROData); err == nil {
		t.Error("ChangeMemAttributes on a block mapping succeeded")
	}
	if !Default().Initialized() {
		t.Error("default context not initialized")
	}
}
