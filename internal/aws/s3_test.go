// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	cfg, err := LoadConfig(context.Background(), Settings{Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	require.NotNil(t, cfg.Retryer)
	assert.Equal(t, DefaultMaxAttempts, cfg.Retryer().MaxAttempts())

	cfg, err = LoadConfig(context.Background(), Settings{Region: "us-east-1", MaxAttempts: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retryer().MaxAttempts())
}

func TestLoadConfig_UnknownProfile(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	_, err := LoadConfig(context.Background(), Settings{Profile: "no-such-profile"})
	assert.ErrorContains(t, err, "failed to load AWS config")
}
