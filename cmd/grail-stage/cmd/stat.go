// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/stage/fileops"
)

func Stat(ctx context.Context, out io.Writer, args []string) error {
	var flags flag.FlagSet
	if err := flags.Parse(args); err != nil {
		return err
	}
	var err error
	for _, path := range flags.Args() {
		size, e := fileops.Size(ctx, path)
		switch {
		case e == nil:
			fmt.Fprintf(out, "%s: %d bytes\n", path, size)
		case errors.Is(errors.NotExist, e):
			fmt.Fprintf(out, "%s: does not exist\n", path)
			if err == nil {
				err = e
			}
		default:
			fmt.Fprintf(out, "%s: %v\n", path, e)
			if err == nil {
				err = e
			}
		}
	}
	return err
}
