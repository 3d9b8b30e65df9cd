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

	"github.com/google/subcommands"

	"xlat.dev/xlat/pkg/log"
)

// buildCmd implements subcommands.Command for the "build" command.
type buildCmd struct {
	dump bool
}

// Name implements subcommands.Command.Name.
func (*buildCmd) Name() string {
	return "build"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*buildCmd) Synopsis() string {
	return "build translation tables from a memory-map file"
}

// Usage implements subcommands.Command.Usage.
func (*buildCmd) Usage() string {
	return `build [flags] <memory-map.toml>
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *buildCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&b.dump, "dump", false, "dump the full descriptor tree")
}

// Execute implements subcommands.Command.Execute.
func (b *buildCmd) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	ctx, err := buildContext(f.Arg(0))
	if err != nil {
		fatalf("building tables: %v", err)
	}

	fmt.Printf("base level:    %d (%d entries)\n", ctx.BaseLevel(), len(ctx.BaseTable()))
	fmt.Printf("targeted EL:   %d\n", ctx.EL())
	fmt.Printf("max VA:        %#x\n", uintptr(ctx.MaxVA()))
	fmt.Printf("max mapped PA: %#x\n", ctx.MaxMappedPA())

	if b.dump {
		// The tree dump goes through the debug logger.
		restore := log.Log().Level
		log.SetLevel(log.Debug)
		ctx.Dump()
		log.SetLevel(restore)
	}
	return subcommands.ExitSuccess
}
