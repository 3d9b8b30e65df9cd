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
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"xlat.dev/xlat/pkg/hostarch"
	"xlat.dev/xlat/pkg/xlat"
)

// memoryMap is the platform memory-map file: the address-space geometry and
// the static region list that would otherwise live in a platform_def header.
type memoryMap struct {
	// VASpaceSize and PASpaceSize size the address spaces.
	VASpaceSize hexValue `toml:"va_space_size"`
	PASpaceSize hexValue `toml:"pa_space_size"`

	// EL is the targeted exception level.
	EL uint `toml:"el"`

	// MaxRegions and MaxTables cap the context capacities.
	MaxRegions int `toml:"max_regions"`
	MaxTables  int `toml:"max_tables"`

	// Dynamic enables dynamic region support.
	Dynamic bool `toml:"dynamic"`

	Regions []regionEntry `toml:"region"`
}

type regionEntry struct {
	Name string   `toml:"name"`
	PA   hexValue `toml:"pa"`
	VA   hexValue `toml:"va"`
	Size hexValue `toml:"size"`

	// Attr is a dash-separated attribute spec, e.g. "mem-rw-s" or
	// "dev-rw-ns". Without an "xn" token the attribute word is executable;
	// device and read-write regions are still mapped execute-never.
	Attr string `toml:"attr"`

	// Granularity optionally pre-splits the region; zero maps as
	// coarsely as possible.
	Granularity hexValue `toml:"granularity"`
}

// hexValue is an address or size given as a string, in any base
// strconv.ParseUint accepts ("0x..." being the usual one).
type hexValue uint64

// UnmarshalText implements encoding.TextUnmarshaler.UnmarshalText.
func (h *hexValue) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 0, 64)
	if err != nil {
		return err
	}
	*h = hexValue(v)
	return nil
}

// loadMemoryMap loads the memory-map file.
func loadMemoryMap(path string) (*memoryMap, error) {
	var m memoryMap
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	if m.MaxRegions == 0 {
		m.MaxRegions = 16
	}
	if m.MaxTables == 0 {
		m.MaxTables = 8
	}
	return &m, nil
}

// parseAttr translates an attribute spec into the attribute word.
func parseAttr(s string) (xlat.Attr, error) {
	var attr xlat.Attr
	haveType := false

	for _, tok := range strings.Split(strings.ToLower(s), "-") {
		switch tok {
		case "mem", "memory":
			attr |= xlat.MemNormal
			haveType = true
		case "nc", "noncacheable":
			attr |= xlat.MemNonCacheable
			haveType = true
		case "dev", "device":
			attr |= xlat.MemDevice
			haveType = true
		case "ro":
			attr |= xlat.PermRO
		case "rw":
			attr |= xlat.PermRW
		case "s", "secure":
			attr |= xlat.Secure
		case "ns":
			attr |= xlat.NonSecure
		case "exec":
			attr |= xlat.Execute
		case "xn":
			attr |= xlat.ExecuteNever
		default:
			return 0, fmt.Errorf("unknown attribute token %q in %q", tok, s)
		}
	}
	if !haveType {
		return 0, fmt.Errorf("attribute spec %q has no memory type", s)
	}
	return attr, nil
}

// buildContext builds and initializes a context from the memory-map file.
func buildContext(path string) (*xlat.Context, error) {
	m, err := loadMemoryMap(path)
	if err != nil {
		return nil, err
	}

	ctx, err := xlat.New(xlat.Config{
		MaxRegions:    m.MaxRegions,
		MaxTables:     m.MaxTables,
		VASpaceSize:   uint64(m.VASpaceSize),
		PASpaceSize:   uint64(m.PASpaceSize),
		EL:            m.EL,
		EnableDynamic: m.Dynamic,
	})
	if err != nil {
		return nil, err
	}

	for _, r := range m.Regions {
		attr, err := parseAttr(r.Attr)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", r.Name, err)
		}
		region := xlat.Region{
			PA:          uint64(r.PA),
			VA:          hostarch.Addr(r.VA),
			Size:        uint64(r.Size),
			Attr:        attr,
			Granularity: uint64(r.Granularity),
		}
		if err := ctx.AddStatic(region); err != nil {
			return nil, fmt.Errorf("region %q: %w", r.Name, err)
		}
	}

	if err := ctx.Init(); err != nil {
		return nil, err
	}
	return ctx, nil
}
