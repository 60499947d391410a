// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"fmt"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultMaxAttempts bounds retries of a single S3 call.
const DefaultMaxAttempts = 3

// Settings selects the credentials and region used to read remote roots.
// Zero values inherit the shell's AWS setup (AWS_PROFILE, shared config,
// env, IMDS).
type Settings struct {
	Region      string
	Profile     string
	MaxAttempts int
}

// LoadConfig resolves an SDK config for s.
func LoadConfig(ctx context.Context, s Settings) (awsv2.Config, error) {
	var opts []func(*config.LoadOptions) error
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}

	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	opts = append(opts, config.WithRetryer(func() awsv2.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), attempts)
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awsv2.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewS3Client returns an S3 client for reading s3:// interpreter roots.
func NewS3Client(ctx context.Context, s Settings, optFns ...func(*s3v2.Options)) (*s3v2.Client, error) {
	cfg, err := LoadConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	log.Debugf("s3 client region=%s profile=%s", cfg.Region, s.Profile)
	return s3v2.NewFromConfig(cfg, optFns...), nil
}
