// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package host defines what the inspections need from the editor or analysis
// framework they run inside: a view of class declarations, a type system and
// sinks for problems and completion proposals.
package host
