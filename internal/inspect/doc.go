// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package inspect implements completion and the two command-class inspections
// on top of the schema cache. Every entry point is read-only and abstains
// silently when any piece of context is missing.
package inspect
