// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package pyhost is a small host for the inspections that works on Python
// source text directly. It recognises imports and class headers, infers the
// types of literal values and matches them against declared type expressions.
// It is deliberately shallow: anything it cannot see through is Any.
package pyhost
