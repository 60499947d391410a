// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"fmt"
	"sync"

	"github.com/staranto/lbctl/internal/interp"
)

// Span is a half-open byte range in a source file.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Expr is an expression in source.
type Expr struct {
	Text string
	Span Span
}

// KeywordArg is a name=value entry of a class header. Either part may be
// empty when the host could not parse it.
type KeywordArg struct {
	Name     string
	NameSpan Span
	Value    *Expr
}

// WellFormed reports whether the argument has both a name and a value.
func (k KeywordArg) WellFormed() bool {
	return k.Name != "" && k.Value != nil
}

// Class is a class declaration.
type Class struct {
	Name string
	// File is where the class is declared, used for diagnostics only.
	File string
	// Superclasses are dotted names of the direct bases, in declaration order.
	Superclasses []string
	KeywordArgs  []KeywordArg
	// ArgumentList covers the parenthesised header arguments.
	ArgumentList Span
	// Body covers the class body, used to locate the enclosing class.
	Body Span
}

// Type is an opaque type produced by a TypeSystem.
type Type any

// TypeSystem parses declared type expressions, infers value types and
// decides compatibility.
type TypeSystem interface {
	Parse(expr string) (Type, error)
	Infer(value Expr) Type
	Match(expected, actual Type) bool
	DisplayName(t Type) string
}

// Resolver maps a class to the module and interpreter that own it.
type Resolver interface {
	// Module returns the module the class belongs to, false when it lies
	// outside every module.
	Module(c Class) (string, bool)
	// Interpreter returns the interpreter configured for module.
	Interpreter(module string) (interp.Interpreter, bool)
}

// Severity of a reported problem.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Problem is a finding at a source span.
type Problem struct {
	File     string   `json:"file" yaml:"file"`
	Class    string   `json:"class" yaml:"class"`
	Span     Span     `json:"span" yaml:"span"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// String implements fmt.Stringer.
func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Severity, p.Message)
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProblemSink receives problems.
type ProblemSink interface {
	Report(p Problem)
}

// Suggestion is a completion proposal such as "name=".
type Suggestion struct {
	Label    string `json:"label" yaml:"label"`
	Name     string `json:"name" yaml:"name"`
	TypeText string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// CompletionSink receives completion proposals.
type CompletionSink interface {
	Add(s Suggestion)
}

// Problems collects reported problems. It is safe for concurrent use.
type Problems struct {
	mu    sync.Mutex
	items []Problem
}

// Report implements ProblemSink.
func (ps *Problems) Report(p Problem) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.items = append(ps.items, p)
}

// All returns the collected problems.
func (ps *Problems) All() []Problem {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]Problem(nil), ps.items...)
}

// Suggestions collects completion proposals. It is safe for concurrent use.
type Suggestions struct {
	mu    sync.Mutex
	items []Suggestion
}

// Add implements CompletionSink.
func (ss *Suggestions) Add(s Suggestion) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.items = append(ss.items, s)
}

// All returns the collected proposals.
func (ss *Suggestions) All() []Suggestion {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return append([]Suggestion(nil), ss.items...)
}
