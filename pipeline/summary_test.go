// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "pipeline")
	defer cleanup()

	path := filepath.Join(tempDir, "summary")
	s := NewSummary(path)
	assert.Equal(t, 0, s.Len())
	s.Add("EventsProcessed", "41669")
	s.Add("TimeElapsed", "493829746")
	assert.Equal(t, 2, s.Len())
	require.NoError(t, s.Write())

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Pipeline.EventsProcessed: 41669\nPipeline.TimeElapsed: 493829746\n",
		string(data))

	// A second Write appends: process steps of one job share the file.
	require.NoError(t, s.Write())
	data, err = ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Pipeline.EventsProcessed: 41669\nPipeline.TimeElapsed: 493829746\n"+
			"Pipeline.EventsProcessed: 41669\nPipeline.TimeElapsed: 493829746\n",
		string(data))
}

func TestSummaryPrefix(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "pipeline")
	defer cleanup()

	path := filepath.Join(tempDir, "summary")
	s := NewSummary(path)
	s.Prefix = ""
	s.Add("key", "value")
	require.NoError(t, s.Write())

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key: value\n", string(data))
}

func TestSummaryPathFromEnv(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "pipeline")
	defer cleanup()

	old, hadOld := os.LookupEnv(SummaryEnv)
	defer func() {
		if hadOld {
			_ = os.Setenv(SummaryEnv, old)
		} else {
			_ = os.Unsetenv(SummaryEnv)
		}
	}()
	path := filepath.Join(tempDir, "env-summary")
	require.NoError(t, os.Setenv(SummaryEnv, path))

	s := NewSummary("")
	s.Add("key", "value")
	require.NoError(t, s.Write())
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestSummaryDump(t *testing.T) {
	s := NewSummary("/dev/null")
	s.Add("key", "value")
	var buf bytes.Buffer
	s.Dump(&buf)
	assert.Contains(t, buf.String(), "1 items:")
	assert.Contains(t, buf.String(), "Pipeline.key: value\n")
}
