// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package pyhost

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/staranto/lbctl/internal/host"
)

// Type is a parsed type expression or an inferred value type.
type Type struct {
	Name  string
	Args  []*Type
	Union []*Type
}

// AnyType matches everything in both directions.
var AnyType = &Type{Name: "Any"}

var builtins = map[string]bool{
	"str": true, "bytes": true, "bytearray": true, "int": true, "float": true,
	"complex": true, "bool": true, "None": true, "list": true, "dict": true,
	"set": true, "frozenset": true, "tuple": true, "type": true, "object": true,
}

var numericRank = map[string]int{"bool": 0, "int": 1, "float": 2, "complex": 3}

var aliases = map[string]string{
	"List": "list", "Dict": "dict", "Set": "set", "FrozenSet": "frozenset",
	"Tuple": "tuple", "Type": "type", "NoneType": "None",
}

var qualifierPrefixes = []string{"typing_extensions.", "typing.", "builtins.", "t."}

// Types implements host.TypeSystem for Python source.
type Types struct{}

var _ host.TypeSystem = Types{}

// Parse implements host.TypeSystem.
func (Types) Parse(expr string) (host.Type, error) {
	p := &typeParser{toks: tokenize(expr)}
	t, err := p.union()
	if err != nil {
		return nil, fmt.Errorf("failed to parse type %q: %w", expr, err)
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("failed to parse type %q: unexpected %q", expr, p.toks[p.pos])
	}
	return t, nil
}

// Infer implements host.TypeSystem.
func (Types) Infer(value host.Expr) host.Type {
	return inferLiteral(strings.TrimSpace(value.Text))
}

// Match implements host.TypeSystem.
func (Types) Match(expected, actual host.Type) bool {
	return match(asType(expected), asType(actual))
}

// DisplayName implements host.TypeSystem.
func (Types) DisplayName(t host.Type) string {
	return asType(t).String()
}

func asType(t host.Type) *Type {
	if pt, ok := t.(*Type); ok && pt != nil {
		return pt
	}
	return AnyType
}

// String renders t in PEP 604 style.
func (t *Type) String() string {
	if len(t.Union) > 0 {
		parts := make([]string, len(t.Union))
		for i, u := range t.Union {
			parts[i] = u.String()
		}
		return strings.Join(parts, " | ")
	}
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	if t.Name == "[]" {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return t.Name + "[" + strings.Join(parts, ", ") + "]"
}

func (t *Type) isAny() bool {
	return len(t.Union) == 0 && t.Name == "Any"
}

func match(expected, actual *Type) bool {
	if expected.isAny() || actual.isAny() {
		return true
	}
	if len(actual.Union) > 0 {
		for _, a := range actual.Union {
			if !match(expected, a) {
				return false
			}
		}
		return true
	}
	if len(expected.Union) > 0 {
		for _, e := range expected.Union {
			if match(e, actual) {
				return true
			}
		}
		return false
	}

	if expected.Name == "object" || !builtins[expected.Name] {
		return true
	}
	if expected.Name == actual.Name {
		return true
	}
	er, eok := numericRank[expected.Name]
	ar, aok := numericRank[actual.Name]
	return eok && aok && ar <= er
}

func union(members []*Type) *Type {
	var flat []*Type
	seen := make(map[string]bool)
	for _, m := range members {
		list := []*Type{m}
		if len(m.Union) > 0 {
			list = m.Union
		}
		for _, t := range list {
			if key := t.String(); !seen[key] {
				seen[key] = true
				flat = append(flat, t)
			}
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Type{Union: flat}
}

func normalizeName(name string) string {
	for _, p := range qualifierPrefixes {
		if strings.HasPrefix(name, p) {
			name = strings.TrimPrefix(name, p)
			break
		}
	}
	if a, ok := aliases[name]; ok {
		return a
	}
	return name
}

type typeParser struct {
	toks []string
	pos  int
}

func (p *typeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) union() (*Type, error) {
	first, err := p.primary()
	if err != nil {
		return nil, err
	}
	members := []*Type{first}
	for p.peek() == "|" {
		p.next()
		t, err := p.primary()
		if err != nil {
			return nil, err
		}
		members = append(members, t)
	}
	return union(members), nil
}

func (p *typeParser) primary() (*Type, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of expression")
	case tok == "[":
		args, err := p.args("]")
		if err != nil {
			return nil, err
		}
		return &Type{Name: "[]", Args: args}, nil
	case tok == "...":
		return &Type{Name: "..."}, nil
	case tok[0] == '"' || tok[0] == '\'':
		if len(tok) < 2 || tok[len(tok)-1] != tok[0] {
			return nil, fmt.Errorf("unterminated forward reference %s", tok)
		}
		inner := tok[1 : len(tok)-1]
		sub := &typeParser{toks: tokenize(inner)}
		t, err := sub.union()
		if err != nil {
			return nil, err
		}
		return t, nil
	case !isNameToken(tok):
		return nil, fmt.Errorf("unexpected %q", tok)
	}

	name := normalizeName(tok)
	if p.peek() != "[" {
		return &Type{Name: name}, nil
	}
	p.next()
	args, err := p.args("]")
	if err != nil {
		return nil, err
	}

	switch name {
	case "Optional":
		if len(args) != 1 {
			return nil, fmt.Errorf("Optional takes exactly one argument, got %d", len(args))
		}
		return union([]*Type{args[0], {Name: "None"}}), nil
	case "Union":
		return union(args), nil
	}
	return &Type{Name: name, Args: args}, nil
}

func (p *typeParser) args(closer string) ([]*Type, error) {
	var out []*Type
	if p.peek() == closer {
		p.next()
		return out, nil
	}
	for {
		t, err := p.union()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		switch p.next() {
		case ",":
			if p.peek() == closer {
				p.next()
				return out, nil
			}
		case closer:
			return out, nil
		default:
			return nil, fmt.Errorf("expected %q", closer)
		}
	}
}

var nameToken = regexp.MustCompile(`^[A-Za-z_][\w.]*$`)

func isNameToken(tok string) bool {
	return nameToken.MatchString(tok)
}

// tokenize splits a type expression into names, punctuation and quoted
// forward references.
func tokenize(expr string) []string {
	var toks []string
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case strings.HasPrefix(expr[i:], "..."):
			toks = append(toks, "...")
			i += 3
		case c == '[' || c == ']' || c == ',' || c == '|':
			toks = append(toks, string(c))
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(expr[i+1:], c)
			if end < 0 {
				toks = append(toks, expr[i:])
				return toks
			}
			toks = append(toks, expr[i:i+end+2])
			i += end + 2
		default:
			j := i
			for j < len(expr) && !strings.ContainsRune(" \t\n[],|\"'", rune(expr[j])) {
				j++
			}
			toks = append(toks, expr[i:j])
			i = j
		}
	}
	return toks
}

var (
	stringLiteral  = regexp.MustCompile(`^(?i:[rbfu]{0,2})("|')`)
	intLiteral     = regexp.MustCompile(`^[+-]?(0[xX][0-9a-fA-F_]+|0[oO][0-7_]+|0[bB][01_]+|\d[\d_]*)$`)
	floatLiteral   = regexp.MustCompile(`^[+-]?((\d[\d_]*)?\.\d[\d_]*|\d[\d_]*\.?)([eE][+-]?\d+)?$`)
	complexLiteral = regexp.MustCompile(`^[+-]?((\d[\d_]*)?\.?\d[\d_]*)([eE][+-]?\d+)?[jJ]$`)
	constructor    = regexp.MustCompile(`^(str|bytes|bytearray|int|float|complex|bool|list|dict|set|frozenset|tuple)\(`)
)

// inferLiteral types literal values and builtin constructor calls. Anything
// else is Any.
func inferLiteral(text string) *Type {
	if text == "" {
		return AnyType
	}

	if stringLiteral.MatchString(text) {
		prefix := strings.ToLower(text[:len(text)-len(strings.TrimLeft(text, "rbfuRBFU"))])
		if strings.Contains(prefix, "b") {
			return &Type{Name: "bytes"}
		}
		return &Type{Name: "str"}
	}

	switch text {
	case "True", "False":
		return &Type{Name: "bool"}
	case "None":
		return &Type{Name: "None"}
	}

	switch {
	case intLiteral.MatchString(text):
		return &Type{Name: "int"}
	case complexLiteral.MatchString(text):
		return &Type{Name: "complex"}
	case floatLiteral.MatchString(text) && strings.ContainsAny(text, ".eE"):
		return &Type{Name: "float"}
	}

	masked := mask([]byte(text))
	last := len(masked) - 1
	switch masked[0] {
	case '[':
		if matchBracket(masked, 0) == last {
			return &Type{Name: "list"}
		}
	case '{':
		if matchBracket(masked, 0) == last {
			if text == "{}" || topLevelByte(masked[1:last], ':') {
				return &Type{Name: "dict"}
			}
			return &Type{Name: "set"}
		}
	case '(':
		if matchBracket(masked, 0) == last {
			inner := strings.TrimSpace(text[1:last])
			if inner == "" || topLevelByte(masked[1:last], ',') {
				return &Type{Name: "tuple"}
			}
			return inferLiteral(inner)
		}
	}

	if m := constructor.FindStringSubmatchIndex(text); m != nil {
		if matchBracket(masked, m[1]-1) == last {
			return &Type{Name: text[m[2]:m[3]]}
		}
	}
	return AnyType
}

func topLevelByte(b []byte, want byte) bool {
	depth := 0
	for _, c := range b {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if c == want && depth == 0 {
				return true
			}
		}
	}
	return false
}
