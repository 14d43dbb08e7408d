// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileops

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
)

const (
	defaultMaxTries = 5
	defaultWait     = 10 * time.Second
)

// Policy governs retries of failed copy attempts: by default five
// attempts in total, with a uniformly jittered wait of 5-10s between
// them. Transient filesystem failures (a delayed automount, a loaded
// server) are expected to clear within a few such waits.
// MaxRetries bounds the retries that follow the first attempt, hence
// the -1.
var Policy = retry.MaxRetries(retry.Jitter(retry.Backoff(defaultWait, defaultWait, 1), 0.5), defaultMaxTries-1)

// Copy copies src to dst on the backend selected for the pair,
// retrying failed attempts per Policy. Each attempt writes to the
// destination's temporary name and renames into place only after the
// written size has been verified against the source, so a partially
// written file is never observed at the final path. A missing source
// fails immediately without retry. Copying a path to itself is a
// no-op.
func Copy(ctx context.Context, src, dst string) error {
	if src == dst {
		log.Debug.Printf("cp: not copying %s to itself", src)
		return nil
	}
	rs, rd := lookup(src), lookup(dst)
	if rs != nil && rd != nil && rs != rd {
		return errors.E(errors.NotSupported, fmt.Sprintf("cp %s %s: paths on different remote backends", src, dst))
	}
	impl := For(src, dst)
	srcSize, err := impl.Size(ctx, src)
	if err != nil {
		// Absence of the source will not clear within the retry
		// window.
		return errors.E("cp", src, dst, err)
	}
	tmp := impl.TempName(dst)
	for tries := 0; ; tries++ {
		elapsed, err := copyOnce(ctx, impl, src, dst, tmp, srcSize)
		if err == nil {
			log.Printf("cp %s %s: %d bytes in %v (%s) after %d tries",
				src, dst, srcSize, elapsed, rateString(srcSize, elapsed), tries+1)
			return nil
		}
		log.Error.Printf("cp %s %s: try %d: %v", src, dst, tries+1, err)
		if werr := retry.Wait(ctx, Policy, tries); werr != nil {
			return errors.E(errors.TooManyTries, "cp", src, dst, fmt.Sprintf("failed after %d tries", tries+1), err)
		}
	}
}

// copyOnce performs one copy attempt. The returned duration covers the
// underlying transfer of this attempt only.
func copyOnce(ctx context.Context, impl Implementation, src, dst, tmp string, want int64) (time.Duration, error) {
	// Some backends refuse a blind overwrite; clear the destination
	// and any leftover temp file first.
	if err := impl.Remove(ctx, dst); err != nil && !errors.Is(errors.NotExist, err) {
		return 0, err
	}
	if tmp != dst {
		if err := impl.Remove(ctx, tmp); err != nil && !errors.Is(errors.NotExist, err) {
			return 0, err
		}
	}
	if dir := file.Dir(tmp); dir != "" && dir != "." {
		if err := impl.MkdirAll(ctx, dir, 0755); err != nil {
			return 0, err
		}
	}
	start := time.Now()
	if err := impl.Copy(ctx, src, tmp); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	size, err := impl.Size(ctx, tmp)
	if err != nil {
		return 0, err
	}
	if size != want {
		return 0, errors.E(errors.Integrity, fmt.Sprintf("cp %s: size mismatch: wrote %d bytes, want %d", tmp, size, want))
	}
	if tmp != dst {
		if err := impl.Rename(ctx, tmp, dst); err != nil {
			return 0, err
		}
	}
	return elapsed, nil
}

func rateString(size int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "fast"
	}
	return fmt.Sprintf("%.3g MB/s", float64(size)/1e6/elapsed.Seconds())
}
