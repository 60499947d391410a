// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package pkgmeta lists the distributions installed in a site-packages root by
// reading their *.dist-info metadata, the way the package manager records them.
package pkgmeta
