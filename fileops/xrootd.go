// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/stage/runner"
)

// XrootdPrefix routes paths to the XRootD backend. XRootD paths have
// the form "root://server//path".
const XrootdPrefix = "root:"

// XrootdBinEnv names the directory holding the xrdcp and xrdfs client
// binaries. When unset, they are looked up on $PATH.
const XrootdBinEnv = "XROOTD_BIN_DIR"

func init() {
	Register(XrootdPrefix, func() Implementation {
		return &xrootdImpl{dir: os.Getenv(XrootdBinEnv)}
	})
}

// xrootdImpl drives an XRootD store through its command-line clients.
// The clients classify failures only through their exit status, so
// every operation here is a thin wrapper over runner.Run.
type xrootdImpl struct {
	dir string // directory holding client binaries; "" means $PATH
}

func (x *xrootdImpl) String() string { return "xrootd" }

func (x *xrootdImpl) tool(name string) string {
	if x.dir == "" {
		return name
	}
	return filepath.Join(x.dir, name)
}

// splitURL splits "root://server//path" into the server URL given to
// xrdfs and the path on that server.
func splitURL(path string) (server, file string, err error) {
	const prefix = XrootdPrefix + "//"
	if !strings.HasPrefix(path, prefix) {
		return "", "", errors.E(errors.Invalid, fmt.Sprintf("xrootd: %s: not of the form root://server//path", path))
	}
	rest := path[len(prefix):]
	i := strings.IndexByte(rest, '/')
	if i <= 0 {
		return "", "", errors.E(errors.Invalid, fmt.Sprintf("xrootd: %s: no path after server", path))
	}
	return prefix + rest[:i], rest[i:], nil
}

// Copy implements Implementation. xrdcp refuses to overwrite an
// existing destination unless given -f, while -f itself can fail on
// servers where the destination does not exist yet. The copy is
// therefore two-phase: a plain copy first, then a single overwrite
// attempt only if the plain copy failed.
func (x *xrootdImpl) Copy(ctx context.Context, src, dst string) error {
	if _, err := runner.Run(ctx, x.tool("xrdcp"), "-np", src, dst); err == nil {
		return nil
	}
	if _, err := runner.Run(ctx, x.tool("xrdcp"), "-np", "-f", src, dst); err != nil {
		return errors.E("xrdcp", src, dst, err)
	}
	return nil
}

func (x *xrootdImpl) Exists(ctx context.Context, path string) bool {
	_, err := x.Size(ctx, path)
	return err == nil
}

func (x *xrootdImpl) Size(ctx context.Context, path string) (int64, error) {
	server, file, err := splitURL(path)
	if err != nil {
		return 0, err
	}
	out, err := runner.Run(ctx, x.tool("xrdfs"), server, "stat", file)
	if err != nil {
		// xrdfs stat reports a missing file only through its exit
		// status.
		return 0, errors.E(errors.NotExist, "stat", path, err)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "Size:" {
			size, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return 0, errors.E("stat", path, err)
			}
			return size, nil
		}
	}
	return 0, errors.E("stat", path, "no size in xrdfs output")
}

// MkdirAll implements Implementation. The store creates missing
// directories on write, so there is nothing to do.
func (x *xrootdImpl) MkdirAll(context.Context, string, os.FileMode) error { return nil }

func (x *xrootdImpl) Remove(ctx context.Context, path string) error {
	server, file, err := splitURL(path)
	if err != nil {
		return err
	}
	if _, err := runner.Run(ctx, x.tool("xrdfs"), server, "rm", file); err != nil {
		return errors.E(errors.NotExist, "rm", path, err)
	}
	return nil
}

func (x *xrootdImpl) RemoveDir(ctx context.Context, path string) error {
	server, file, err := splitURL(path)
	if err != nil {
		return err
	}
	if _, err := runner.Run(ctx, x.tool("xrdfs"), server, "rmdir", file); err != nil {
		return errors.E("rmdir", path, err)
	}
	return nil
}

// RemoveAll implements Implementation. The client offers no recursive
// removal; entries are drained one level at a time.
func (x *xrootdImpl) RemoveAll(ctx context.Context, path string) error {
	server, file, err := splitURL(path)
	if err != nil {
		return err
	}
	out, err := runner.Run(ctx, x.tool("xrdfs"), server, "ls", file)
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			entry := strings.TrimSpace(line)
			if entry == "" || entry == file {
				continue
			}
			sub := server + entry
			if err := x.Remove(ctx, sub); err != nil {
				if err := x.RemoveAll(ctx, sub); err != nil {
					log.Error.Printf("xrootd: rmtree %s: %v", sub, err)
				}
			}
		}
	}
	return x.RemoveDir(ctx, path)
}

// TempName implements Implementation. The store exposes no rename, so
// copies are written directly to their final name.
func (x *xrootdImpl) TempName(path string) string { return path }

func (x *xrootdImpl) Rename(context.Context, string, string) error { return nil }
