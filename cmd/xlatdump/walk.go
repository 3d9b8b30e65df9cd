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
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"xlat.dev/xlat/pkg/hostarch"
)

// walkCmd implements subcommands.Command for the "walk" command.
type walkCmd struct{}

// Name implements subcommands.Command.Name.
func (*walkCmd) Name() string {
	return "walk"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*walkCmd) Synopsis() string {
	return "translate virtual addresses through the built tables"
}

// Usage implements subcommands.Command.Usage.
func (*walkCmd) Usage() string {
	return `walk <memory-map.toml> <va>...
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*walkCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*walkCmd) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	ctx, err := buildContext(f.Arg(0))
	if err != nil {
		fatalf("building tables: %v", err)
	}

	for _, arg := range f.Args()[1:] {
		va, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			fatalf("bad VA %q: %v", arg, err)
		}
		pa, attr, err := ctx.Translate(hostarch.Addr(va))
		if err != nil {
			fmt.Printf("VA %#x: not mapped\n", va)
			continue
		}
		fmt.Printf("VA %#x -> PA %#x %s\n", va, pa, attr)
	}
	return subcommands.ExitSuccess
}
