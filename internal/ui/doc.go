// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package ui renders refresh outcomes, either as one-line descriptions or as
// the live bubbletea view behind lbctl watch.
package ui
