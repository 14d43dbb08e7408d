// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"flag"
	"io"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/stage/fileops"
)

func Cp(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags     flag.FlagSet
		triesFlag = flags.Int("tries", 5, "Maximum number of copy attempts")
		waitFlag  = flags.Duration("wait", 10*time.Second, "Upper bound of the jittered wait between attempts")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	args = flags.Args()
	if len(args) != 2 {
		return errors.New("usage: cp src dst")
	}
	if *triesFlag < 1 {
		return errors.New("cp: -tries must be at least 1")
	}
	fileops.Policy = retry.MaxRetries(retry.Jitter(retry.Backoff(*waitFlag, *waitFlag, 1), 0.5), *triesFlag-1)
	return fileops.Copy(ctx, args[0], args[1])
}
