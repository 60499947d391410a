// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package notify carries user-facing messages from the schema cache to
// whatever displays them.
package notify
