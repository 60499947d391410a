// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package loader reads the lightbulb parameter schema and version marker from
// an interpreter's site-packages root and classifies every way that can fail.
package loader
