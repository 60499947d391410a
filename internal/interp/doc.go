// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package interp identifies Python interpreters and maps filesystem paths back
// to the interpreter whose site-packages root contains them.
package interp
