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

package main

import (
	"testing"

	"xlat.dev/xlat/pkg/xlat"
)

func TestParseAttr(t *testing.T) {
	for _, tc := range []struct {
		spec string
		want xlat.Attr
	}{
		{"mem-rw-s", xlat.MemNormal | xlat.PermRW | xlat.Secure},
		{"dev-rw-ns", xlat.MemDevice | xlat.PermRW | xlat.NonSecure},
		{"mem-ro-exec", xlat.MemCode},
		{"nc-rw", xlat.MemNonCacheable | xlat.PermRW},
		{"memory-ro-xn", xlat.MemROData},
	} {
		got, err := parseAttr(tc.spec)
		if err != nil {
			t.Errorf("parseAttr(%q): %v", tc.spec, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseAttr(%q) = %s, want %s", tc.spec, got, tc.want)
		}
	}

	for _, spec := range []string{"", "rw", "mem-fast"} {
		if _, err := parseAttr(spec); err == nil {
			t.Errorf("parseAttr(%q) succeeded", spec)
		}
	}
}

func TestBuildContextQEMU(t *testing.T) {
	ctx, err := buildContext("testdata/qemu.toml")
	if err != nil {
		t.Fatalf("buildContext: %v", err)
	}

	if ctx.BaseLevel() != 1 {
		t.Errorf("base level = %d, want 1", ctx.BaseLevel())
	}

	// The UART window is device memory, execute-never.
	pa, attr, err := ctx.Translate(0x09000000)
	if err != nil {
		t.Fatalf("Translate(UART): %v", err)
	}
	if pa != 0x09000000 {
		t.Errorf("UART pa = %#x", pa)
	}
	if attr.MemoryType().ShortString() != "DEV" || !attr.ExecuteNever() {
		t.Errorf("UART attr = %s", attr)
	}

	// DRAM is non-secure normal memory.
	if _, attr, err = ctx.Translate(0x40000000); err != nil || !attr.NonSecure() {
		t.Errorf("DRAM attr = %s, err %v", attr, err)
	}

	// The hole between the device windows is unmapped.
	if _, _, err := ctx.Translate(0x0a000000); err == nil {
		t.Error("hole translated")
	}
}
