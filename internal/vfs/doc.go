// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package vfs is the read-only filesystem the schema loader reads through.
// Interpreter roots may be local site-packages directories or s3:// URIs
// pointing at a mirrored copy of a remote environment.
package vfs
