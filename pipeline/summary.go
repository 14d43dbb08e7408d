// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package pipeline reports job-level data back to the orchestrating
// pipeline service: summary key/value pairs appended to the job
// summary file, and variable and substream registration through the
// pipeline's command-line hooks.
package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

const (
	// SummaryEnv names the file that receives job summary lines.
	SummaryEnv = "PIPELINE_SUMMARY"
	// DefaultSummaryPath is used when neither the caller nor the
	// environment names a summary file.
	DefaultSummaryPath = "./pipeline_summary"
	// DefaultPrefix is prepended to summary keys; the pipeline server
	// loads lines carrying it into its database.
	DefaultPrefix = "Pipeline."
)

// Summary accumulates key/value summary data for one job and appends
// it to the job summary file as "<prefix><key>: <value>" lines.
//
//	s := pipeline.NewSummary("")
//	s.Add("EventsProcessed", "41669")
//	s.Add("TimeElapsed", "493829746")
//	err := s.Write()
type Summary struct {
	// Prefix is prepended to every key. It may be set to "" for
	// consumers other than the pipeline server.
	Prefix string

	path  string
	items []string
}

// NewSummary returns a Summary writing to the given path, defaulting
// to $PIPELINE_SUMMARY and then to DefaultSummaryPath.
func NewSummary(path string) *Summary {
	if path == "" {
		path = os.Getenv(SummaryEnv)
	}
	if path == "" {
		path = DefaultSummaryPath
	}
	log.Debug.Printf("pipeline: summary file %s", path)
	return &Summary{Prefix: DefaultPrefix, path: path}
}

// Add records one summary datum.
func (s *Summary) Add(key, value string) {
	s.items = append(s.items, fmt.Sprintf("%s%s: %s\n", s.Prefix, key, value))
}

// Len returns the number of recorded data.
func (s *Summary) Len() int { return len(s.items) }

// Write appends the recorded data to the summary file. The file is
// append-only by convention: several process steps of one job share
// it.
func (s *Summary) Write() error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.E("pipeline: summary", s.path, err)
	}
	for _, item := range s.items {
		if _, err := io.WriteString(f, item); err != nil {
			_ = f.Close()
			return errors.E("pipeline: summary", s.path, err)
		}
	}
	return f.Close()
}

// Dump writes the recorded data to w for debugging.
func (s *Summary) Dump(w io.Writer) {
	fmt.Fprintf(w, "summary file: %s\n", s.path)
	fmt.Fprintf(w, "%d items:\n", len(s.items))
	for _, item := range s.items {
		_, _ = io.WriteString(w, item)
	}
}
