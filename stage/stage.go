// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package stage manages copies of a batch job's files on machine-local
// scratch disk. A job creates one Set, stages its inputs in and its
// outputs out, runs against the returned working paths, and calls
// Finish to publish products to their final destinations and tear the
// scratch directory down:
//
//	s, err := stage.New(stage.Opts{})
//	in, err := s.StageIn(ctx, input)
//	out, err := s.StageOut(output)
//	// ... produce out from in ...
//	err = s.Finish(ctx, stage.ModeFull)
//
// Staging is an optimization, not a correctness requirement: when no
// scratch space can be had, every staging call degrades to a
// pass-through that returns the original path, and the job proceeds
// against shared storage directly. Stage-out copy failures at Finish,
// however, are reported: losing a product is a real failure.
//
// A Set is not safe for concurrent use. Each job instance owns one
// Set, and the working directory name incorporates a per-job unique
// name so concurrent jobs on one machine do not collide.
package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gobwas/glob"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Finish modes.
const (
	// ModeFull copies products out, cleans up working files, and
	// removes the working directory.
	ModeFull = ""
	// ModeKeep copies products out but leaves the working directory,
	// its files, and the Set's bookkeeping intact for further use.
	ModeKeep = "keep"
	// ModeClean copies products out, cleans up working files, and
	// resets bookkeeping, but keeps the working directory for a new
	// staging session.
	ModeClean = "clean"
	// ModeWipe removes the working directory without copying anything
	// out. Used for rollback.
	ModeWipe = "wipe"
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateDisabled
)

// Opts configures a Set. The zero value is usable: the working
// directory is named after the process id under a root resolved from
// the environment, nothing is excluded, and stage-in copies run
// immediately.
type Opts struct {
	// Name is the name of the working directory under the resolved
	// root, typically unique per job. Defaults to the process id.
	Name string
	// Root is the parent of the working directory. See resolveRoot
	// for how it combines with $STAGE_ROOT_DEV and $STAGE_ROOT.
	Root string
	// ExcludeIn and ExcludeOut are glob patterns
	// (github.com/gobwas/glob) naming paths that must never be staged
	// in or out; matching paths pass through unchanged.
	ExcludeIn, ExcludeOut string
	// NoAutoStart suppresses the immediate copy-in performed by
	// StageIn and StageMod; the caller then runs Start itself.
	NoAutoStart bool
}

// Set owns one job's working directory and the files staged into it.
type Set struct {
	name        string
	root        string
	dir         string
	excludeIn   glob.Glob
	excludeOut  glob.Glob
	noAutoStart bool

	state                 state
	files                 []*File
	numIn, numOut, numMod int
}

// New creates a Set and sets up its working directory. A setup
// failure does not return an error: the Set is disabled and every
// staging call passes through. New fails only on an invalid exclude
// pattern.
func New(opts Opts) (*Set, error) {
	s := &Set{
		name:        opts.Name,
		noAutoStart: opts.NoAutoStart,
	}
	var err error
	if opts.ExcludeIn != "" {
		if s.excludeIn, err = glob.Compile(opts.ExcludeIn); err != nil {
			return nil, errors.E(errors.Invalid, "stage: exclude-in pattern", opts.ExcludeIn, err)
		}
	}
	if opts.ExcludeOut != "" {
		if s.excludeOut, err = glob.Compile(opts.ExcludeOut); err != nil {
			return nil, errors.E(errors.Invalid, "stage: exclude-out pattern", opts.ExcludeOut, err)
		}
	}
	if s.name == "" {
		s.name = strconv.Itoa(os.Getpid())
	}
	s.root = resolveRoot(opts.Root)
	s.dir = filepath.Join(s.root, s.name)
	s.setup()
	return s, nil
}

// setup creates the working directory and marks the Set ready, or
// disables staging if the directory cannot be had.
func (s *Set) setup() {
	if _, err := os.Stat(s.dir); err == nil {
		log.Printf("stage: working directory already exists: %s", s.dir)
		s.state = stateReady
	} else if err := os.MkdirAll(s.dir, 0777); err != nil {
		log.Error.Printf("stage: staging disabled: mkdir %s: %v", s.dir, err)
		s.state = stateDisabled
	} else {
		log.Debug.Printf("stage: created working directory %s", s.dir)
		s.state = stateReady
	}
	s.reset()
}

func (s *Set) reset() {
	s.files = nil
	s.numIn, s.numOut, s.numMod = 0, 0, 0
}

// ensure re-runs setup after a full Finish has torn the Set down, so
// that a Set may host a fresh staging session.
func (s *Set) ensure() {
	if s.state == stateUninitialized {
		s.setup()
	}
}

// stagedName returns the working-area name for path: the resolved
// basename of the real path under the working directory.
func (s *Set) stagedName(path string) string {
	return filepath.Join(s.dir, file.Base(path))
}

// StageIn stages an input file and returns the path the job should
// read. When staging is disabled or path matches the exclude-in
// pattern, path is returned unchanged and no member is recorded.
func (s *Set) StageIn(ctx context.Context, path string) (string, error) {
	s.ensure()
	if s.state != stateReady {
		log.Printf("stage: stage-in unavailable for %s", path)
		return path, nil
	}
	if s.excludeIn != nil && s.excludeIn.Match(path) {
		log.Printf("stage: %s excluded from stage-in", path)
		return path, nil
	}
	log.Printf("stage: stage-in %s", path)
	f := newFile(s.stagedName(path), path, nil, true)
	s.files = append(s.files, f)
	s.numIn++
	if s.noAutoStart {
		return f.Working, nil
	}
	return f.Working, f.Start(ctx)
}

// StageOut stages an output file and returns the path the job should
// write. The first destination is the primary; any further
// destinations receive additional copies at Finish. When staging is
// disabled or the primary matches the exclude-out pattern, the
// primary is returned unchanged, but the member is still recorded
// with cleanup disabled, so secondary destinations receive their
// copies regardless.
func (s *Set) StageOut(destinations ...string) (string, error) {
	s.ensure()
	if len(destinations) == 0 {
		return "", errors.E(errors.Invalid, "stage: no stage-out destination given")
	}
	primary := destinations[0]
	var (
		working string
		cleanup bool
	)
	switch {
	case s.state != stateReady:
		log.Printf("stage: stage-out unavailable for %s", primary)
		working, cleanup = primary, false
	case s.excludeOut != nil && s.excludeOut.Match(primary):
		log.Printf("stage: %s excluded from stage-out", primary)
		working, cleanup = primary, false
	default:
		log.Printf("stage: stage-out %s", primary)
		working, cleanup = s.stagedName(primary), true
	}
	f := newFile(working, "", destinations, cleanup)
	s.files = append(s.files, f)
	s.numOut++
	return working, nil
}

// StageMod stages a file the job reads and rewrites in place: the
// original is copied in, and the working copy is copied back over the
// original at Finish.
func (s *Set) StageMod(ctx context.Context, path string) (string, error) {
	s.ensure()
	var (
		working string
		cleanup bool
	)
	switch {
	case s.state != stateReady:
		log.Printf("stage: stage-mod unavailable for %s", path)
		working, cleanup = path, false
	case s.excludeIn != nil && s.excludeIn.Match(path),
		s.excludeOut != nil && s.excludeOut.Match(path):
		log.Printf("stage: %s excluded from stage-mod", path)
		working, cleanup = path, false
	default:
		log.Printf("stage: stage-mod %s", path)
		working, cleanup = s.stagedName(path), true
	}
	f := newFile(working, path, []string{path}, cleanup)
	s.files = append(s.files, f)
	s.numMod++
	if s.noAutoStart {
		return f.Working, nil
	}
	return f.Working, f.Start(ctx)
}

// Start runs the stage-in copy for every member that has not started
// yet. It is used with Opts.NoAutoStart to batch copy-ins.
func (s *Set) Start(ctx context.Context) error {
	var e errors.Once
	for _, f := range s.files {
		e.Set(f.Start(ctx))
	}
	return e.Err()
}

// Finish drains the Set according to mode: every member's product is
// copied to its destinations (except under ModeWipe), working files
// and the working directory are cleaned up per mode. Members are
// processed best-effort (a failure does not stop the drain) and the
// first error observed is returned. Callers must treat a non-nil
// error as "at least one product may be missing".
func (s *Set) Finish(ctx context.Context, mode string) error {
	log.Debug.Printf("stage: finish(%q)", mode)
	if s.state == stateDisabled {
		log.Printf("stage: staging disabled; copying only to secondary destinations")
	}
	if mode == ModeWipe {
		log.Printf("stage: wiping %s without retrieving outputs", s.dir)
		return s.removeDir()
	}
	var e errors.Once
	keep := mode == ModeKeep
	for _, f := range s.files {
		e.Set(f.Finish(ctx, keep))
	}
	if keep {
		return e.Err()
	}
	s.reset()
	if mode == ModeClean {
		return e.Err()
	}
	if s.state == stateReady {
		e.Set(s.removeDir())
	}
	s.state = stateUninitialized
	return e.Err()
}

// removeDir removes the working directory. A non-empty directory is
// unexpected after cleanup; it is logged and removed recursively
// rather than aborting teardown. Failure is logged and returned,
// never thrown further.
func (s *Set) removeDir() error {
	var err error
	if s.state == stateReady {
		if err = os.Remove(s.dir); err != nil {
			log.Error.Printf("stage: working directory not empty after cleanup: %s", s.dir)
			s.listDir()
			log.Error.Printf("stage: forcing recursive removal of %s", s.dir)
			if err = os.RemoveAll(s.dir); err != nil {
				log.Error.Printf("stage: cannot remove %s: %v", s.dir, err)
				err = errors.E("stage: remove working directory", s.dir, err)
			}
		}
	}
	s.state = stateUninitialized
	s.reset()
	return err
}

// listDir logs the contents of the working directory for post-mortem
// diagnosis.
func (s *Set) listDir() {
	entries, err := ioutilReadDirNames(s.dir)
	if err != nil {
		return
	}
	for _, name := range entries {
		log.Error.Printf("stage: leftover: %s", filepath.Join(s.dir, name))
	}
}

func ioutilReadDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	names, err := f.Readdirnames(-1)
	if e := f.Close(); e != nil && err == nil {
		err = e
	}
	return names, err
}

// Dir returns the working directory, or "" when staging is not in
// operation.
func (s *Set) Dir() string {
	if s.state != stateReady {
		return ""
	}
	return s.dir
}

// Ready reports whether staging is initialized and in operation.
func (s *Set) Ready() bool { return s.state == stateReady }

// NumIn, NumOut and NumMod report how many members of each kind the
// current session has accumulated. Diagnostic only.
func (s *Set) NumIn() int  { return s.numIn }
func (s *Set) NumOut() int { return s.numOut }
func (s *Set) NumMod() int { return s.numMod }

// Dump writes the state of the Set and every member to w for
// post-mortem diagnosis.
func (s *Set) Dump(w io.Writer) {
	var state string
	switch s.state {
	case stateReady:
		state = "ready"
	case stateDisabled:
		state = "disabled"
	default:
		state = "uninitialized"
	}
	fmt.Fprintf(w, "stage: %s dir=%s in=%d out=%d mod=%d\n", state, s.dir, s.numIn, s.numOut, s.numMod)
	for _, f := range s.files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

// DumpFileList writes the real (destination) name of every staged-out
// file to the named file, one per line, for rollback tooling that must
// delete a failed job's products.
func (s *Set) DumpFileList(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.E("stage: dump file list", path, err)
	}
	for _, sf := range s.files {
		for _, dest := range sf.Destinations {
			if _, err := fmt.Fprintln(f, dest); err != nil {
				_ = f.Close()
				return errors.E("stage: dump file list", path, err)
			}
		}
	}
	return f.Close()
}
