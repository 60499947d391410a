// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package pyhost

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/staranto/lbctl/internal/host"
)

// File is a parsed Python source file.
type File struct {
	Path    string
	Src     []byte
	Imports map[string]string
	Classes []host.Class

	masked []byte
	lines  []int
}

var (
	importLine = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([^\n]+)`)
	fromLine   = regexp.MustCompile(`(?m)^[ \t]*from[ \t]+([.\w]+)[ \t]+import[ \t]+(\([^)]*\)|[^\n]+)`)
	classLine  = regexp.MustCompile(`(?m)^([ \t]*)class[ \t]+([A-Za-z_]\w*)[ \t]*\(`)
	identifier = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	dottedName = regexp.MustCompile(`^[A-Za-z_]\w*(\s*\.\s*[A-Za-z_]\w*)*$`)
)

// ParseFile scans src for imports and class declarations with a
// parenthesised argument list.
func ParseFile(path string, src []byte) *File {
	f := &File{
		Path:    path,
		Src:     src,
		Imports: make(map[string]string),
		masked:  mask(src),
	}
	f.lines = lineStarts(src)
	f.parseImports()
	f.parseClasses()
	return f
}

// Position converts a byte offset to a 1-based line and column.
func (f *File) Position(offset int) (line, col int) {
	i := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - f.lines[i] + 1
}

// Offset converts a 1-based line to the byte offset of its first character.
func (f *File) Offset(line int) int {
	switch {
	case line < 1:
		return 0
	case line > len(f.lines):
		return len(f.Src)
	default:
		return f.lines[line-1]
	}
}

// ClassAt returns the innermost class whose header or body covers line.
func (f *File) ClassAt(line int) (host.Class, bool) {
	off := f.Offset(line)
	var (
		best      host.Class
		bestStart int
		found     bool
	)
	for _, c := range f.Classes {
		hl, _ := f.Position(c.ArgumentList.Start)
		start := f.Offset(hl)
		if off < start || (off >= c.Body.End && c.Body.End < len(f.Src)) {
			continue
		}
		if !found || start >= bestStart {
			best, bestStart, found = c, start, true
		}
	}
	return best, found
}

// Text returns the source text covered by s.
func (f *File) Text(s host.Span) string {
	if s.Start < 0 || s.End > len(f.Src) || s.Start > s.End {
		return ""
	}
	return string(f.Src[s.Start:s.End])
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (f *File) parseImports() {
	for _, m := range importLine.FindAllSubmatch(f.masked, -1) {
		for _, part := range strings.Split(string(m[1]), ",") {
			name, alias := splitAlias(part)
			if name == "" {
				continue
			}
			if alias != "" {
				f.Imports[alias] = name
				continue
			}
			first, _, _ := strings.Cut(name, ".")
			f.Imports[first] = first
		}
	}

	for _, m := range fromLine.FindAllSubmatch(f.masked, -1) {
		module := string(m[1])
		names := strings.Trim(strings.TrimSpace(string(m[2])), "()")
		for _, part := range strings.Split(names, ",") {
			name, alias := splitAlias(part)
			if name == "" || name == "*" {
				continue
			}
			if alias == "" {
				alias = name
			}
			f.Imports[alias] = module + "." + name
		}
	}
}

func splitAlias(part string) (name, alias string) {
	fields := strings.Fields(part)
	switch {
	case len(fields) == 1:
		return fields[0], ""
	case len(fields) == 3 && fields[1] == "as":
		return fields[0], fields[2]
	default:
		return "", ""
	}
}

func (f *File) parseClasses() {
	for _, m := range classLine.FindAllSubmatchIndex(f.masked, -1) {
		indent := m[3] - m[2]
		name := string(f.masked[m[4]:m[5]])
		open := m[1] - 1

		rparen := matchBracket(f.masked, open)
		if rparen < 0 {
			continue
		}
		colon := skipSpace(f.masked, rparen+1)
		if colon >= len(f.masked) || f.masked[colon] != ':' {
			continue
		}

		c := host.Class{
			Name:         name,
			File:         f.Path,
			ArgumentList: host.Span{Start: open, End: rparen + 1},
			Body:         host.Span{Start: colon + 1, End: f.blockEnd(colon+1, indent)},
		}
		for _, seg := range splitTopLevel(f.masked, open+1, rparen) {
			f.addArgument(&c, seg)
		}
		f.Classes = append(f.Classes, c)
	}
}

// addArgument classifies one header segment as a base class or a keyword.
func (f *File) addArgument(c *host.Class, seg host.Span) {
	seg = trimSpan(f.masked, seg)
	if seg.Start >= seg.End {
		return
	}
	text := f.masked[seg.Start:seg.End]
	if text[0] == '*' {
		return
	}

	if eq := topLevelAssign(text); eq >= 0 {
		nameSpan := trimSpan(f.masked, host.Span{Start: seg.Start, End: seg.Start + eq})
		valSpan := trimSpan(f.masked, host.Span{Start: seg.Start + eq + 1, End: seg.End})

		kw := host.KeywordArg{NameSpan: nameSpan}
		if name := string(f.Src[nameSpan.Start:nameSpan.End]); identifier.MatchString(name) {
			kw.Name = name
		}
		if valSpan.Start < valSpan.End {
			kw.Value = &host.Expr{Text: string(f.Src[valSpan.Start:valSpan.End]), Span: valSpan}
		}
		c.KeywordArgs = append(c.KeywordArgs, kw)
		return
	}

	base := string(f.Src[seg.Start:seg.End])
	if i := strings.IndexByte(base, '['); i > 0 {
		base = strings.TrimSpace(base[:i])
	}
	if !dottedName.MatchString(base) {
		return
	}
	c.Superclasses = append(c.Superclasses, f.qualify(stripSpaces(base)))
}

// qualify resolves the first component of a dotted name through the import
// table.
func (f *File) qualify(name string) string {
	first, rest, dotted := strings.Cut(name, ".")
	target, ok := f.Imports[first]
	if !ok {
		return name
	}
	if dotted {
		return target + "." + rest
	}
	return target
}

// blockEnd returns the offset where the indented block starting at from ends.
func (f *File) blockEnd(from, indent int) int {
	i := bytes.IndexByte(f.masked[from:], '\n')
	if i < 0 {
		return len(f.masked)
	}
	pos := from + i + 1
	for pos < len(f.masked) {
		end := bytes.IndexByte(f.masked[pos:], '\n')
		line := f.masked[pos:]
		if end >= 0 {
			line = f.masked[pos : pos+end]
		}
		trimmed := bytes.TrimLeft(line, " \t")
		if len(bytes.TrimSpace(trimmed)) > 0 && len(line)-len(trimmed) <= indent {
			return pos
		}
		if end < 0 {
			break
		}
		pos += end + 1
	}
	return len(f.masked)
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
