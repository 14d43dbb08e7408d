// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package stage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoot(t *testing.T) {
	restore := func(name, value string) {
		if value == "" {
			_ = os.Unsetenv(name)
		} else {
			_ = os.Setenv(name, value)
		}
	}
	oldDev, oldRoot := os.Getenv(RootDevEnv), os.Getenv(RootEnv)
	defer restore(RootDevEnv, oldDev)
	defer restore(RootEnv, oldRoot)

	// The development override beats everything, including an explicit
	// argument.
	require.NoError(t, os.Setenv(RootDevEnv, "/dev-root"))
	require.NoError(t, os.Setenv(RootEnv, "/env-root"))
	assert.Equal(t, "/dev-root", resolveRoot("/arg-root"))

	// The caller's argument beats the regular environment setting.
	require.NoError(t, os.Unsetenv(RootDevEnv))
	assert.Equal(t, "/arg-root", resolveRoot("/arg-root"))

	// The regular environment setting is next.
	assert.Equal(t, "/env-root", resolveRoot(""))

	// With nothing configured, a default scratch location is chosen.
	require.NoError(t, os.Unsetenv(RootEnv))
	root := resolveRoot("")
	assert.NotEqual(t, "", root)
}
