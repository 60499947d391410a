// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package watcher turns filesystem and package-manager signals into debounced
// schema refreshes for the interpreter that owns the changed path.
package watcher
