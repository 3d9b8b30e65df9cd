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

// The process-wide default context, for images that manage a single address
// space. The context-taking API is primary; these are thin forwarders.

var defaultContext *Context

// RegisterDefault installs ctx as the default context the package-level
// forwarders act on.
func RegisterDefault(ctx *Context) {
	defaultContext = ctx
}

// Default returns the default context.
func Default() *Context {
	if defaultContext == nil {
		panic("xlat: no default context registered")
	}
	return defaultContext
}

// AddStatic adds a static region to the default context.
func AddStatic(r Region) error {
	return Default().AddStatic(r)
}

// Add adds static regions to the default context.
func Add(regions []Region) error {
	return Default().Add(regions)
}

// AddDynamic adds a dynamic region to the default context.
func AddDynamic(r Region) error {
	return Default().AddDynamic(r)
}

// RemoveDynamic removes a dynamic region from the default context.
func RemoveDynamic(va hostarch.Addr, size uint64) error {
	return Default().RemoveDynamic(va, size)
}

// Init initializes the default context's translation tables.
func Init() error {
	return Default().Init()
}

// ChangeMemAttributes changes page attributes in the default context.
func ChangeMemAttributes(va hostarch.Addr, size uint64, attr Attr) error {
	return Default().ChangeMemAttributes(va, size, attr)
}
