// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package schemadiff

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/lbctl/internal/lightbulb"
)

// Summary lists class-level changes, each sorted.
type Summary struct {
	FromVersion string   `json:"fromVersion" yaml:"fromVersion"`
	ToVersion   string   `json:"toVersion" yaml:"toVersion"`
	Added       []string `json:"added" yaml:"added"`
	Removed     []string `json:"removed" yaml:"removed"`
	Changed     []string `json:"changed" yaml:"changed"`
}

// Empty reports whether no class changed.
func (s Summary) Empty() bool {
	return len(s.Added) == 0 && len(s.Removed) == 0 && len(s.Changed) == 0
}

// String renders a one-line summary.
func (s Summary) String() string {
	return fmt.Sprintf("%s -> %s: %d added, %d removed, %d changed",
		s.FromVersion, s.ToVersion, len(s.Added), len(s.Removed), len(s.Changed))
}

// Diff is the comparison of two schemas.
type Diff struct {
	Summary
	delta gojsondiff.Diff
	left  map[string]any
}

// Modified reports whether the parameter documents differ.
func (d *Diff) Modified() bool {
	return d.delta.Modified()
}

// Format renders the parameter-level delta as an ascii diff of the from
// schema with +/- markers.
func (d *Diff) Format(color bool) (string, error) {
	if !d.delta.Modified() {
		return "", nil
	}
	f := formatter.NewAsciiFormatter(d.left, formatter.AsciiFormatterConfig{Coloring: color})
	return f.Format(d.delta)
}

// Compare diffs from against to. Versions are not part of the delta.
func Compare(from, to *lightbulb.Data) (*Diff, error) {
	if from == nil {
		from = lightbulb.Sentinel()
	}
	if to == nil {
		to = lightbulb.Sentinel()
	}

	left, err := asObject(from)
	if err != nil {
		return nil, err
	}
	right, err := asObject(to)
	if err != nil {
		return nil, err
	}

	delta := gojsondiff.New().CompareObjects(left, right)
	return &Diff{
		Summary: summarize(from, to),
		delta:   delta,
		left:    left,
	}, nil
}

func asObject(d *lightbulb.Data) (map[string]any, error) {
	raw, err := json.Marshal(d.Document().ParamData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema %s: %w", d.Version(), err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode schema %s: %w", d.Version(), err)
	}
	return obj, nil
}

func summarize(from, to *lightbulb.Data) Summary {
	s := Summary{FromVersion: from.Version(), ToVersion: to.Version()}
	for _, class := range from.Classes() {
		a, _ := from.Params(class)
		b, ok := to.Params(class)
		switch {
		case !ok:
			s.Removed = append(s.Removed, class)
		case !reflect.DeepEqual(a, b):
			s.Changed = append(s.Changed, class)
		}
	}
	for _, class := range to.Classes() {
		if _, ok := from.Params(class); !ok {
			s.Added = append(s.Added, class)
		}
	}
	sort.Strings(s.Added)
	return s
}

// Describe lists per-parameter changes for one changed class, e.g.
// "+ nsfw: bool" or "~ name: str -> str | None".
func Describe(from, to lightbulb.ParamData) []string {
	names := make(map[string]bool)
	for _, p := range []lightbulb.ParamData{from, to} {
		for n := range p.Required {
			names[n] = true
		}
		for n := range p.Optional {
			names[n] = true
		}
	}

	keys := make([]string, 0, len(names))
	for n := range names {
		keys = append(keys, n)
	}
	sort.Strings(keys)

	var lines []string
	for _, n := range keys {
		at, areq, aok := from.Lookup(n)
		bt, breq, bok := to.Lookup(n)
		switch {
		case !aok:
			lines = append(lines, fmt.Sprintf("+ %s: %s%s", n, bt, reqTag(breq)))
		case !bok:
			lines = append(lines, fmt.Sprintf("- %s: %s%s", n, at, reqTag(areq)))
		case at != bt || areq != breq:
			lines = append(lines, strings.TrimSpace(fmt.Sprintf("~ %s: %s%s -> %s%s", n, at, reqTag(areq), bt, reqTag(breq))))
		}
	}
	return lines
}

func reqTag(required bool) string {
	if required {
		return " (required)"
	}
	return ""
}
