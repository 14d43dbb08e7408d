// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	out, err := Run(ctx, "sh", "-c", "echo to-stdout; echo to-stderr 1>&2")
	require.NoError(t, err)
	// Stdout and stderr are captured together.
	assert.Contains(t, out, "to-stdout")
	assert.Contains(t, out, "to-stderr")
}

func TestRunFailure(t *testing.T) {
	ctx := context.Background()
	out, err := Run(ctx, "sh", "-c", "echo partial; exit 3")
	require.Error(t, err)
	// Output produced before the failure is still returned.
	assert.Contains(t, out, "partial")
}

func TestRunMissingProgram(t *testing.T) {
	ctx := context.Background()
	_, err := Run(ctx, "definitely-not-a-real-program-xyz")
	require.Error(t, err)
}
