// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package schemadiff reports what changed between two lightbulb schemas.
package schemadiff
