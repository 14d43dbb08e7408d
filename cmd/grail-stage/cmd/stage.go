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

	"github.com/grailbio/base/errors"
	"github.com/grailbio/stage/stage"
)

func Stage(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags    flag.FlagSet
		rootFlag = flags.String("root", "", "Parent of the staging directory (default: resolved from the environment)")
		keepFlag = flags.Bool("keep", false, "Leave the staging directory and its files in place")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	args = flags.Args()
	if len(args) == 0 {
		return errors.New("usage: stage path...")
	}
	s, err := stage.New(stage.Opts{
		Name: fmt.Sprintf("grail-stage-%d", os.Getpid()),
		Root: *rootFlag,
	})
	if err != nil {
		return err
	}
	for _, path := range args {
		working, err := s.StageIn(ctx, path)
		if err != nil {
			_ = s.Finish(ctx, stage.ModeWipe)
			return err
		}
		fmt.Fprintf(out, "%s -> %s\n", path, working)
	}
	mode := stage.ModeFull
	if *keepFlag {
		mode = stage.ModeKeep
	}
	return s.Finish(ctx, mode)
}
