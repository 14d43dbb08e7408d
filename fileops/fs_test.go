// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileops

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSCopy(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "fileops")
	defer cleanup()
	ctx := context.Background()

	src := filepath.Join(tempDir, "src.txt")
	require.NoError(t, ioutil.WriteFile(src, []byte("hello world"), 0644))
	// The destination directory does not exist yet; Copy creates it.
	dst := filepath.Join(tempDir, "sub", "dir", "dst.txt")
	require.NoError(t, Copy(ctx, src, dst))

	data, err := ioutil.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.True(t, Exists(ctx, dst))

	size, err := Size(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), size)

	// No temp file is left behind.
	assert.False(t, Exists(ctx, dst+TempSuffix))
}

func TestFSCopyOverwrite(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "fileops")
	defer cleanup()
	ctx := context.Background()

	src := filepath.Join(tempDir, "src.txt")
	dst := filepath.Join(tempDir, "dst.txt")
	require.NoError(t, ioutil.WriteFile(src, []byte("new contents"), 0644))
	require.NoError(t, ioutil.WriteFile(dst, []byte("stale and much longer contents"), 0644))
	require.NoError(t, Copy(ctx, src, dst))

	data, err := ioutil.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new contents", string(data))
}

func TestFSSizeMissing(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "fileops")
	defer cleanup()
	ctx := context.Background()

	_, err := Size(ctx, filepath.Join(tempDir, "nonesuch"))
	require.Error(t, err)
	assert.True(t, errors.Is(errors.NotExist, err))
	assert.False(t, Exists(ctx, filepath.Join(tempDir, "nonesuch")))
}

func TestFSRemove(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "fileops")
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(tempDir, "doomed.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, Remove(ctx, path))
	assert.False(t, Exists(ctx, path))

	err := Remove(ctx, path)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.NotExist, err))
}

func TestFSRemoveAll(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "fileops")
	defer cleanup()
	ctx := context.Background()

	dir := filepath.Join(tempDir, "tree")
	require.NoError(t, MkdirAll(ctx, filepath.Join(dir, "deep"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "deep", "leaf"), []byte("x"), 0644))
	require.NoError(t, RemoveAll(ctx, dir))
	assert.False(t, Exists(ctx, dir))
}
