// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/stage/fileops"
)

func Rm(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags         flag.FlagSet
		verboseFlag   = flags.Bool("v", false, "Enable verbose logging")
		recursiveFlag = flags.Bool("R", false, "Recursive remove")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	var err error
	for _, path := range flags.Args() {
		if *verboseFlag {
			fmt.Fprintf(os.Stderr, "%s\n", path) // nolint: errcheck
		}
		var e error
		if *recursiveFlag {
			e = fileops.RemoveAll(ctx, path)
		} else {
			e = fileops.Remove(ctx, path)
		}
		if e != nil && err == nil {
			err = e
		}
	}
	return err
}
