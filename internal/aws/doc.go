// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws builds the S3 client used to read interpreter roots that are
// mirrored into a bucket (s3:// roots).
package aws
