// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"fmt"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/schemadiff"
)

// State is the short cache state shown for an entry.
func State(data *lightbulb.Data, ok bool) string {
	switch {
	case !ok:
		return "unknown"
	case data.IsSentinel():
		return "not loaded"
	case data.Empty():
		return "empty"
	default:
		return "loaded"
	}
}

// Describe renders o as one line such as
// "venv: stored 2.1.0 (upgrade; 1.9.3 -> 2.1.0: 2 added, 0 removed, 1 changed)".
func Describe(o cache.Outcome) string {
	name := o.Interpreter.Name
	switch o.Status {
	case cache.Stored:
		detail := o.Direction.String()
		if o.Previous != nil {
			if d, err := schemadiff.Compare(o.Previous, o.Current); err == nil && !d.Empty() {
				detail += "; " + d.Summary.String()
			}
		}
		return fmt.Sprintf("%s: stored %s (%s)", name, o.Current.Version(), detail)
	case cache.Unchanged:
		if o.Current != nil {
			return fmt.Sprintf("%s: unchanged %s", name, o.Current.Version())
		}
		return fmt.Sprintf("%s: unchanged", name)
	case cache.Failed:
		if o.Err != nil {
			return fmt.Sprintf("%s: failed %s: %v", name, o.Code, o.Err)
		}
		return fmt.Sprintf("%s: failed %s", name, o.Code)
	default:
		return fmt.Sprintf("%s: %s", name, o.Status)
	}
}
