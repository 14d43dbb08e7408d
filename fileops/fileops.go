// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package fileops provides a uniform set of file operations across
// heterogeneous storage backends, and a resilient copy built on top of
// them.
//
// A backend is selected by path syntax: a path carrying a registered
// remote prefix (such as "root:" for XRootD or "s3://" for S3) is
// routed to the matching remote implementation, and any other path to
// the local filesystem. An operation naming several paths is serviced
// by a single backend; a remote prefix on any of the paths wins, since
// a transfer spanning a remote store must be driven by the backend that
// understands the remote endpoint.
package fileops

import (
	"context"
	"os"
	"strings"
	"sync"
)

// Implementation implements the file operations for one storage
// backend. Paths are passed unmodified, remote prefix included.
type Implementation interface {
	// String returns a diagnostic name for the backend.
	String() string

	// Copy copies src to dst in a single attempt, without retries or
	// temp-file handling; resilience is layered on by Copy in this
	// package. One of the paths may belong to another backend: a
	// remote implementation resolves cross-backend transfers itself.
	Copy(ctx context.Context, src, dst string) error

	// Exists reports whether the file at path exists and is readable.
	Exists(ctx context.Context, path string) bool

	// Size returns the size of the file at path. Absence is an
	// ordinary outcome, reported as an error of kind errors.NotExist.
	Size(ctx context.Context, path string) (int64, error)

	// MkdirAll creates the directory at path along with any missing
	// parents. Backends without directory semantics return nil.
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error

	// Remove removes the file at path. Removing a nonexistent file
	// returns an error of kind errors.NotExist.
	Remove(ctx context.Context, path string) error

	// RemoveDir removes the empty directory at path.
	RemoveDir(ctx context.Context, path string) error

	// RemoveAll removes path and everything below it.
	RemoveAll(ctx context.Context, path string) error

	// TempName returns the temporary name used while writing to path.
	// Backends whose writes are already atomic return path unchanged.
	TempName(path string) string

	// Rename moves the file at from to to. Backends for which TempName
	// is the identity implement this as a no-op.
	Rename(ctx context.Context, from, to string) error
}

type registration struct {
	prefix  string
	factory func() Implementation
	once    sync.Once
	impl    Implementation
}

var (
	mu       sync.Mutex
	registry []*registration
	local    Implementation = fsImpl{}
)

// Register arranges for paths beginning with prefix to be serviced by
// the implementation returned by factory. The factory is invoked at
// most once, upon the first request for a matching path, so backends
// with expensive setup (sessions, credentials) pay for it only when
// used. Register should be called at process start; registering the
// same prefix twice panics.
func Register(prefix string, factory func() Implementation) {
	if prefix == "" {
		panic("fileops.Register: empty prefix")
	}
	if factory == nil {
		panic("fileops.Register: nil factory")
	}
	mu.Lock()
	defer mu.Unlock()
	for _, r := range registry {
		if r.prefix == prefix {
			panic("fileops.Register: prefix " + prefix + " already registered")
		}
	}
	registry = append(registry, &registration{prefix: prefix, factory: factory})
}

func lookup(path string) *registration {
	mu.Lock()
	defer mu.Unlock()
	for _, r := range registry {
		if strings.HasPrefix(path, r.prefix) {
			return r
		}
	}
	return nil
}

func (r *registration) implementation() Implementation {
	r.once.Do(func() { r.impl = r.factory() })
	return r.impl
}

// For returns the single implementation that must service all of the
// given paths: the backend of the first path carrying a registered
// remote prefix, else the local filesystem.
func For(paths ...string) Implementation {
	for _, path := range paths {
		if r := lookup(path); r != nil {
			return r.implementation()
		}
	}
	return local
}

// IsRemote reports whether path is routed to a remote backend.
func IsRemote(path string) bool { return lookup(path) != nil }

// Exists reports whether the file at path exists, using the backend
// selected for path.
func Exists(ctx context.Context, path string) bool {
	return For(path).Exists(ctx, path)
}

// Size returns the size of the file at path, using the backend
// selected for path. Absence is an error of kind errors.NotExist.
func Size(ctx context.Context, path string) (int64, error) {
	return For(path).Size(ctx, path)
}

// Remove removes the file at path, using the backend selected for
// path.
func Remove(ctx context.Context, path string) error {
	return For(path).Remove(ctx, path)
}

// RemoveAll removes path and everything below it, using the backend
// selected for path.
func RemoveAll(ctx context.Context, path string) error {
	return For(path).RemoveAll(ctx, path)
}

// MkdirAll creates the directory at path and any missing parents,
// using the backend selected for path.
func MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return For(path).MkdirAll(ctx, path, perm)
}
