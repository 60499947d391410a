// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package session owns the schema cache for one run: it seeds and scans the
// configured interpreters, serves the manual refresh action and hands the
// cache to the watcher and the inspections.
package session
