// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package pyhost

import (
	"github.com/staranto/lbctl/internal/host"
)

// mask returns a copy of src with comments blanked and string contents
// replaced by 'x', so brackets, commas and '=' inside them are inert. Byte
// offsets and newlines are preserved.
func mask(src []byte) []byte {
	out := append([]byte(nil), src...)
	for i := 0; i < len(out); {
		switch out[i] {
		case '#':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case '\'', '"':
			i = maskString(out, i)
		default:
			i++
		}
	}
	return out
}

// maskString masks the literal opening at i and returns the offset after it.
func maskString(b []byte, i int) int {
	q := b[i]
	triple := i+2 < len(b) && b[i+1] == q && b[i+2] == q
	j := i + 1
	if triple {
		j = i + 3
	}

	for j < len(b) {
		switch {
		case b[j] == '\\':
			b[j] = 'x'
			if j+1 < len(b) && b[j+1] != '\n' {
				b[j+1] = 'x'
			}
			j += 2
			continue
		case triple && b[j] == q && j+2 < len(b) && b[j+1] == q && b[j+2] == q:
			return j + 3
		case !triple && b[j] == q:
			return j + 1
		case !triple && b[j] == '\n':
			return j
		}
		if b[j] != '\n' {
			b[j] = 'x'
		}
		j++
	}
	return len(b)
}

// matchBracket returns the offset of the bracket closing the one at open, or
// -1 when the brackets are unbalanced.
func matchBracket(b []byte, open int) int {
	depth := 0
	for i := open; i < len(b); i++ {
		switch b[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

func skipSpace(b []byte, i int) int {
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	return i
}

// splitTopLevel splits b[from:to] at commas outside brackets.
func splitTopLevel(b []byte, from, to int) []host.Span {
	var (
		spans []host.Span
		depth int
		start = from
	)
	for i := from; i < to; i++ {
		switch b[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				spans = append(spans, host.Span{Start: start, End: i})
				start = i + 1
			}
		}
	}
	return append(spans, host.Span{Start: start, End: to})
}

// topLevelAssign returns the index of a bare '=' outside brackets, skipping
// comparison and walrus operators.
func topLevelAssign(text []byte) int {
	depth := 0
	for i, c := range text {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i > 0 && isOperatorByte(text[i-1]) {
				continue
			}
			if i+1 < len(text) && text[i+1] == '=' {
				continue
			}
			return i
		}
	}
	return -1
}

func isOperatorByte(c byte) bool {
	switch c {
	case '=', '!', '<', '>', ':':
		return true
	}
	return false
}

func trimSpan(b []byte, s host.Span) host.Span {
	for s.Start < s.End && isSpace(b[s.Start]) {
		s.Start++
	}
	for s.End > s.Start && isSpace(b[s.End-1]) {
		s.End--
	}
	return s
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\\':
		return true
	}
	return false
}
