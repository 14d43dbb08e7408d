// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/grailbio/stage/runner"
)

// Registration commands provided by the pipeline wrapper environment.
const (
	setCommand          = "pipelineSet"
	createStreamCommand = "pipelineCreateStream"
)

// maxVarLength is the longest value the pipeline server stores
// reliably.
const maxVarLength = 1000

// SetVariable registers a pipeline variable for the current process.
// The value is formatted in the manner of fmt.Sprint.
func SetVariable(ctx context.Context, name string, value interface{}) error {
	v := fmt.Sprint(value)
	if len(v) > maxVarLength {
		log.Error.Printf("pipeline: variable %s is probably too long to work correctly (max %d)", name, maxVarLength)
	}
	_, err := runner.Run(ctx, setCommand, name, v)
	return err
}

// CreateSubStream launches a substream of the named subtask. A stream
// number of -1 lets the server assign one. args carries additional
// "name=value" pairs for the substream, comma separated.
func CreateSubStream(ctx context.Context, subtask string, stream int, args string) error {
	_, err := runner.Run(ctx, createStreamCommand, subtask, strconv.Itoa(stream), args)
	return err
}

// Process, Stream and Task return the identity of the current job
// from the pipeline environment. They are empty outside a pipeline
// wrapper.
func Process() string { return os.Getenv("PIPELINE_PROCESS") }
func Stream() string  { return os.Getenv("PIPELINE_STREAM") }
func Task() string    { return os.Getenv("PIPELINE_TASK") }
