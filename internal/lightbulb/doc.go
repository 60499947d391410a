// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package lightbulb models the metaclass parameter schema that
// hikari-lightbulb ships in metaparams.json: per command superclass, the
// required and optional keyword parameters and their type expressions.
package lightbulb
