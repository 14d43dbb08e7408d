// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package stage

import (
	"context"
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/stage/fileops"
)

// File is one file under staging management: an optional source copied
// into the working area, and zero or more destinations that receive
// the working copy at teardown. File carries no state machine beyond
// the started flag; the owning Set drives its lifecycle.
type File struct {
	// Source is the original path, set for stage-in and stage-modify
	// and empty for pure stage-out.
	Source string
	// Working is the path of the managed copy inside the staging
	// directory (or the original path when staging is passed through).
	Working string
	// Destinations are the final paths that receive the working copy
	// at Finish. The working path itself never appears here.
	Destinations []string
	// Cleanup removes the working copy once all destinations are
	// satisfied.
	Cleanup bool

	started bool
}

func newFile(working, source string, destinations []string, cleanup bool) *File {
	f := &File{Source: source, Working: working, Cleanup: cleanup}
	for _, dest := range destinations {
		if dest == working {
			// The artifact already resides at its own destination:
			// copying is pointless and deleting it would lose it.
			f.Cleanup = false
			continue
		}
		f.Destinations = append(f.Destinations, dest)
	}
	log.Debug.Printf("stage: new %s", f)
	return f
}

// String returns a diagnostic description of the file.
func (f *File) String() string {
	return fmt.Sprintf("file source=%q working=%q destinations=%v cleanup=%v started=%v",
		f.Source, f.Working, f.Destinations, f.Cleanup, f.started)
}

// Started reports whether the stage-in copy has run.
func (f *File) Started() bool { return f.started }

// Start performs the stage-in copy. The copy runs only when a source
// is set, the source differs from the working path, and Start has not
// run before; Start is idempotent either way.
func (f *File) Start(ctx context.Context) error {
	if f.started || f.Source == "" || f.Source == f.Working {
		f.started = true
		return nil
	}
	f.started = true
	return fileops.Copy(ctx, f.Source, f.Working)
}

// Finish copies the working file to each destination and, unless keep
// is set, removes the working copy per the cleanup policy. Every
// destination is attempted even after a failure; the first error is
// returned.
func (f *File) Finish(ctx context.Context, keep bool) error {
	var e errors.Once
	for _, dest := range f.Destinations {
		e.Set(fileops.Copy(ctx, f.Working, dest))
	}
	if !keep && f.Cleanup && writable(f.Working) {
		log.Debug.Printf("stage: removing %s", f.Working)
		e.Set(os.Remove(f.Working))
	} else {
		log.Debug.Printf("stage: keeping %s", f.Working)
	}
	return e.Err()
}

// writable reports whether the file at path exists and carries the
// owner-write bit.
func writable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().Perm()&0200 != 0
}
