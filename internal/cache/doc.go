// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache holds the lightbulb schema of every known interpreter in
// memory and refreshes entries from disk when asked. Reads never perform I/O.
package cache
