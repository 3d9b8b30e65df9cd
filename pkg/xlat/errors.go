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

import "errors"

// Errors returned by the region-mutation and attribute-change entry points.
// Callers match with errors.Is; the wrapped message carries the specifics.
var (
	// ErrInvalid indicates a malformed argument: misaligned address or
	// size, zero size where one is required, or a forbidden attribute
	// combination.
	ErrInvalid = errors.New("invalid argument")

	// ErrOutOfRange indicates an address beyond the configured VA or PA
	// space, or arithmetic wrap-around.
	ErrOutOfRange = errors.New("address out of range")

	// ErrNoMemory indicates the region list is full or the sub-table pool
	// is exhausted.
	ErrNoMemory = errors.New("out of memory")

	// ErrPermission indicates an illegal overlap, an attempt to remove a
	// static region, or a dynamic region overlapping another region.
	ErrPermission = errors.New("permission denied")
)
