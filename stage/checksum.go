// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package stage

import (
	"context"
	"crypto"
	_ "crypto/md5" // registers crypto.MD5
	"io"
	"os"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/stage/fileops"
)

var md5Digester = digest.Digester(crypto.MD5)

// Checksums computes an MD5 digest of the working copy of every member
// that has destinations to receive it, keyed by working path. It is a
// verification pass run before Finish, independent of the size check
// performed by each copy. Members whose working path is not on the
// local filesystem are skipped.
func (s *Set) Checksums(ctx context.Context) (map[string]string, error) {
	sums := make(map[string]string)
	for _, f := range s.files {
		if len(f.Destinations) == 0 || fileops.IsRemote(f.Working) {
			continue
		}
		sum, err := checksumFile(ctx, f.Working)
		if err != nil {
			return nil, err
		}
		sums[f.Working] = sum
	}
	return sums, nil
}

func checksumFile(_ context.Context, path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", errors.E("stage: checksum", path, err)
	}
	defer in.Close() // nolint: errcheck
	w := md5Digester.NewWriter()
	if _, err := io.Copy(w, in); err != nil {
		return "", errors.E("stage: checksum", path, err)
	}
	return w.Digest().Hex(), nil
}
