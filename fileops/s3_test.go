// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileops

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
)

func TestS3Error(t *testing.T) {
	for _, code := range []string{"NoSuchKey", "NoSuchBucket", "NotFound"} {
		err := s3Error("stat", "s3://bucket/key", awserr.New(code, "gone", nil))
		assert.True(t, errors.Is(errors.NotExist, err), "code %s", code)
	}
	err := s3Error("stat", "s3://bucket/key", awserr.New("AccessDenied", "denied", nil))
	assert.False(t, errors.Is(errors.NotExist, err))
}
