// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the slice of the S3 client used by S3.
type S3API interface {
	HeadObject(context.Context, *s3v2.HeadObjectInput, ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error)
	GetObject(context.Context, *s3v2.GetObjectInput, ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	ListObjectsV2(context.Context, *s3v2.ListObjectsV2Input, ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error)
}

// S3 reads interpreter files mirrored into a bucket. Directories are implied
// by key prefixes.
type S3 struct {
	client S3API
}

// NewS3 wraps an S3 client.
func NewS3(client S3API) *S3 {
	return &S3{client: client}
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsRemote(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	rest := strings.TrimPrefix(uri, S3Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %s", uri)
	}
	return bucket, strings.Trim(key, "/"), nil
}

// Stat implements FS.
func (s *S3) Stat(ctx context.Context, name string) (FileInfo, error) {
	bucket, key, err := ParseS3URI(name)
	if err != nil {
		return FileInfo{}, err
	}

	if key != "" {
		out, err := s.client.HeadObject(ctx, &s3v2.HeadObjectInput{
			Bucket: awsv2.String(bucket),
			Key:    awsv2.String(key),
		})
		if err == nil {
			info := FileInfo{Name: path.Base(key)}
			if out.ContentLength != nil {
				info.Size = *out.ContentLength
			}
			if out.LastModified != nil {
				info.ModTime = *out.LastModified
			}
			return info, nil
		}
		if !isS3NotFound(err) {
			return FileInfo{}, fmt.Errorf("failed to stat %s: %w", name, err)
		}
	}

	// No object at the key; it may still be a "directory".
	prefix := key
	if prefix != "" {
		prefix += "/"
	}
	list, err := s.client.ListObjectsV2(ctx, &s3v2.ListObjectsV2Input{
		Bucket:  awsv2.String(bucket),
		Prefix:  awsv2.String(prefix),
		MaxKeys: awsv2.Int32(1),
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to list %s: %w", name, err)
	}
	if len(list.Contents) == 0 {
		log.Debugf("s3: nothing at %s", name)
		return FileInfo{}, ErrNotExist
	}
	return FileInfo{Name: path.Base(key), IsDir: true}, nil
}

// ReadFile implements FS.
func (s *S3) ReadFile(ctx context.Context, name string) ([]byte, error) {
	bucket, key, err := ParseS3URI(name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
