// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package version holds the build version, set with -ldflags at release time.
package version

// Version is overridden by the release build.
var Version = "dev"
