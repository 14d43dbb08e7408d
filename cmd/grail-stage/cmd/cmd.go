// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cmd implements the grail-stage subcommands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/errors"
)

var commands = []struct {
	name     string
	callback func(ctx context.Context, out io.Writer, args []string) error
	help     string
}{
	{"cp", Cp, `Cp copies a file between any supported backends (local filesystem,
root://... XRootD stores, s3:// buckets), with retries and size verification.`},
	{"rm", Rm, `Rm removes files on any supported backend. With -R it removes
directories (or prefixes) recursively.`},
	{"stat", Stat, `Stat reports existence and size for each of the given paths.`},
	{"stage", Stage, `Stage copies the given files into a scratch staging directory the
way a batch job would, reports their working paths, and tears the directory
down.`},
}

// PrintHelp lists the subcommands on stderr.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Subcommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "%s: %s\n", c.name, c.help)
	}
}

// Run dispatches to the subcommand named by args[0].
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintHelp()
		return errors.E("no subcommand given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.callback(ctx, os.Stdout, args[1:])
		}
	}
	PrintHelp()
	return errors.E("unknown command", args[0])
}
