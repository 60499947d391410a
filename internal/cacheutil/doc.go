// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cacheutil stores files read from remote interpreter roots on disk
// so repeated runs do not fetch unchanged objects again.
package cacheutil
