// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileops

import (
	"context"
	"crypto"
	_ "crypto/md5" // registers crypto.MD5
	"io"
	"os"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// TempSuffix is appended to a destination path to form the temporary
// name a copy is written to before being renamed into place.
const TempSuffix = ".part"

var md5Digester = digest.Digester(crypto.MD5)

// fsImpl services plain local-filesystem paths with direct os calls.
type fsImpl struct{}

func (fsImpl) String() string { return "fs" }

// Copy implements Implementation. The source is streamed through an
// MD5 digest as it is copied; the digest is logged so a transfer can be
// checked against the catalog after the fact.
func (fsImpl) Copy(_ context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.E("cp", src, err)
	}
	defer in.Close() // nolint: errcheck
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.E("cp", dst, err)
	}
	w := md5Digester.NewWriter()
	if _, err := io.Copy(io.MultiWriter(out, w), in); err != nil {
		_ = out.Close()
		return errors.E("cp", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.E("cp", dst, err)
	}
	log.Debug.Printf("cp %s %s: md5 %s", src, dst, w.Digest().Hex())
	return nil
}

func (fsImpl) Exists(_ context.Context, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func (fsImpl) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.E(errors.NotExist, "stat", path, err)
		}
		return 0, errors.E("stat", path, err)
	}
	return info.Size(), nil
}

func (fsImpl) MkdirAll(_ context.Context, path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fsImpl) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.E(errors.NotExist, "remove", path, err)
		}
		return errors.E("remove", path, err)
	}
	return nil
}

func (fsImpl) RemoveDir(_ context.Context, path string) error {
	return os.Remove(path)
}

func (fsImpl) RemoveAll(_ context.Context, path string) error {
	return os.RemoveAll(path)
}

func (fsImpl) TempName(path string) string { return path + TempSuffix }

func (fsImpl) Rename(_ context.Context, from, to string) error {
	return os.Rename(from, to)
}
