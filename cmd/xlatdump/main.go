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

// xlatdump builds translation tables from a platform memory-map file and
// inspects the result without any hardware in the loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"xlat.dev/xlat/pkg/log"
)

var debug = flag.Bool("debug", false, "enable debug logging")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(buildCmd), "")
	subcommands.Register(new(walkCmd), "")

	flag.Parse()
	if *debug {
		log.SetLevel(log.Debug)
	}
	log.SetTarget(&log.Writer{Next: os.Stdout})

	os.Exit(int(subcommands.Execute(context.Background())))
}

// fatalf prints the error and exits. It is the command-level failure path;
// argument errors go through subcommands.ExitUsageError instead.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(128)
}
