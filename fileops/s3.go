// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileops

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/grailbio/base/errors"
)

// S3Prefix routes paths to the S3 backend.
const S3Prefix = "s3://"

func init() {
	Register(S3Prefix, func() Implementation { return newS3Impl() })
}

// s3Impl services "s3://bucket/key" paths. It is constructed lazily so
// that processes that never touch S3 need no AWS configuration.
type s3Impl struct {
	client     s3iface.S3API
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

func newS3Impl() *s3Impl {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	client := s3.New(sess)
	return &s3Impl{
		client:     client,
		uploader:   s3manager.NewUploaderWithClient(client),
		downloader: s3manager.NewDownloaderWithClient(client),
	}
}

func (*s3Impl) String() string { return "s3" }

// parseS3Path splits "s3://bucket/key" into bucket and key.
func parseS3Path(path string) (bucket, key string, err error) {
	if !strings.HasPrefix(path, S3Prefix) {
		return "", "", errors.E(errors.Invalid, fmt.Sprintf("s3: %s: not an s3:// path", path))
	}
	rest := path[len(S3Prefix):]
	i := strings.IndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", "", errors.E(errors.Invalid, fmt.Sprintf("s3: %s: missing bucket or key", path))
	}
	return rest[:i], rest[i+1:], nil
}

// s3Error maps AWS error codes onto error kinds, so that callers test
// for absence without scraping message text.
func s3Error(op, path string, err error) error {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return errors.E(errors.NotExist, op, path, err)
		}
	}
	return errors.E(op, path, err)
}

// Copy implements Implementation. Copies within S3 use a server-side
// object copy; copies to or from the local filesystem stream through
// the transfer manager.
func (impl *s3Impl) Copy(ctx context.Context, src, dst string) error {
	srcS3, dstS3 := strings.HasPrefix(src, S3Prefix), strings.HasPrefix(dst, S3Prefix)
	switch {
	case srcS3 && dstS3:
		srcBucket, srcKey, err := parseS3Path(src)
		if err != nil {
			return err
		}
		dstBucket, dstKey, err := parseS3Path(dst)
		if err != nil {
			return err
		}
		_, err = impl.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(dstBucket),
			Key:        aws.String(dstKey),
			CopySource: aws.String(url.PathEscape(srcBucket + "/" + srcKey)),
		})
		if err != nil {
			return s3Error("cp", src, err)
		}
		return nil
	case srcS3:
		if IsRemote(dst) {
			return errors.E(errors.NotSupported, fmt.Sprintf("cp %s %s: destination is on another remote backend", src, dst))
		}
		bucket, key, err := parseS3Path(src)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return errors.E("cp", dst, err)
		}
		_, err = impl.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			return s3Error("cp", src, err)
		}
		return nil
	default:
		if IsRemote(src) {
			return errors.E(errors.NotSupported, fmt.Sprintf("cp %s %s: source is on another remote backend", src, dst))
		}
		bucket, key, err := parseS3Path(dst)
		if err != nil {
			return err
		}
		f, err := os.Open(src)
		if err != nil {
			return errors.E("cp", src, err)
		}
		defer f.Close() // nolint: errcheck
		_, err = impl.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		if err != nil {
			return s3Error("cp", dst, err)
		}
		return nil
	}
}

func (impl *s3Impl) Exists(ctx context.Context, path string) bool {
	_, err := impl.Size(ctx, path)
	return err == nil
}

func (impl *s3Impl) Size(ctx context.Context, path string) (int64, error) {
	bucket, key, err := parseS3Path(path)
	if err != nil {
		return 0, err
	}
	out, err := impl.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, s3Error("stat", path, err)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// MkdirAll implements Implementation. Keys need no directories.
func (*s3Impl) MkdirAll(context.Context, string, os.FileMode) error { return nil }

func (impl *s3Impl) Remove(ctx context.Context, path string) error {
	bucket, key, err := parseS3Path(path)
	if err != nil {
		return err
	}
	// DeleteObject succeeds for a missing key, matching the pre-delete
	// step of the resilient copy.
	if _, err = impl.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return s3Error("rm", path, err)
	}
	return nil
}

// RemoveDir implements Implementation. Prefixes vanish with their last
// object.
func (*s3Impl) RemoveDir(context.Context, string) error { return nil }

func (impl *s3Impl) RemoveAll(ctx context.Context, path string) error {
	bucket, key, err := parseS3Path(path)
	if err != nil {
		return err
	}
	var outer error
	err = impl.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(strings.TrimSuffix(key, "/") + "/"),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			if _, err := impl.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			}); err != nil {
				outer = s3Error("rm", S3Prefix+bucket+"/"+aws.StringValue(obj.Key), err)
				return false
			}
		}
		return true
	})
	if err != nil {
		return s3Error("rmtree", path, err)
	}
	return outer
}

// TempName implements Implementation. Object writes are atomic: a key
// becomes visible only once its upload completes.
func (*s3Impl) TempName(path string) string { return path }

func (*s3Impl) Rename(context.Context, string, string) error { return nil }
