// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package runner executes external helper programs on behalf of the
// staging and pipeline packages, logging the command line, timing, and
// exit status of every invocation.
package runner

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/limitbuf"
	"github.com/grailbio/base/log"
)

// maxCapture bounds the combined output retained from a command.
// Helper tools are expected to be quiet; anything beyond this is noise.
const maxCapture = 8 << 10

// Run executes the named program with the given arguments and returns
// its combined stdout and stderr. The output is truncated at a fixed
// bound. A non-zero exit status or a failure to start is returned as an
// error; the (possibly partial) output is returned in either case.
func Run(ctx context.Context, name string, args ...string) (string, error) {
	buf := limitbuf.NewLogger(maxCapture)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = buf
	cmd.Stderr = buf
	log.Debug.Printf("run: %s %s", name, strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	out := buf.String()
	if err != nil {
		log.Error.Printf("run: %s: %v (wall %v): %s", name, err, elapsed, out)
		return out, errors.E("run", name, err)
	}
	log.Debug.Printf("run: %s: ok (wall %v)", name, elapsed)
	return out, nil
}
