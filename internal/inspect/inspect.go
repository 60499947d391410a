// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
)

// Reason says why a lookup produced nothing to work with.
type Reason int

const (
	Ok Reason = iota
	NoModule
	NoInterpreter
	NotScanned
	NoSchema
	NoSuperclass
	Cancelled
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case Ok:
		return "ok"
	case NoModule:
		return "no-module"
	case NoInterpreter:
		return "no-interpreter"
	case NotScanned:
		return "not-scanned"
	case NoSchema:
		return "no-schema"
	case NoSuperclass:
		return "no-superclass"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Resolution is the shared result of the lookup every adapter starts with.
// Only Abstain is meaningful unless it is Ok.
type Resolution struct {
	Abstain     Reason
	Interpreter interp.Interpreter
	Data        *lightbulb.Data
	SchemaKey   string
	Params      lightbulb.ParamData
	// Supplied holds the well-formed keyword arguments, first occurrence of
	// each name only, in declaration order.
	Supplied []host.KeywordArg
}

// OK reports whether the adapters have something to work with.
func (r Resolution) OK() bool {
	return r.Abstain == Ok
}

// Has reports whether name was supplied.
func (r Resolution) Has(name string) bool {
	for _, k := range r.Supplied {
		if k.Name == name {
			return true
		}
	}
	return false
}

// Inspector answers completion and inspection requests from cached schemas.
type Inspector struct {
	cache    cache.Reader
	resolver host.Resolver
	types    host.TypeSystem
}

// New returns an Inspector reading from c.
func New(c cache.Reader, r host.Resolver, ts host.TypeSystem) *Inspector {
	return &Inspector{cache: c, resolver: r, types: ts}
}

// Lookup resolves class against the schema of its interpreter.
func (in *Inspector) Lookup(ctx context.Context, class host.Class) Resolution {
	if ctx.Err() != nil {
		return Resolution{Abstain: Cancelled}
	}
	if in.resolver == nil || in.cache == nil {
		return Resolution{Abstain: NoModule}
	}

	module, ok := in.resolver.Module(class)
	if !ok {
		return Resolution{Abstain: NoModule}
	}
	i, ok := in.resolver.Interpreter(module)
	if !ok {
		return Resolution{Abstain: NoInterpreter}
	}

	data, ok := in.cache.Get(i.ID)
	if !ok || data == nil {
		return Resolution{Abstain: NotScanned, Interpreter: i}
	}
	if data.IsSentinel() || data.Empty() {
		return Resolution{Abstain: NoSchema, Interpreter: i, Data: data}
	}

	if ctx.Err() != nil {
		return Resolution{Abstain: Cancelled}
	}

	res := Resolution{Abstain: NoSuperclass, Interpreter: i, Data: data}
	for _, super := range class.Superclasses {
		key, ok := data.Match(super)
		if !ok {
			continue
		}
		res.SchemaKey = key
		res.Params, _ = data.Params(key)
		res.Abstain = Ok
		break
	}
	if !res.OK() {
		return res
	}

	seen := make(map[string]bool)
	for _, k := range class.KeywordArgs {
		if !k.WellFormed() || seen[k.Name] {
			continue
		}
		seen[k.Name] = true
		res.Supplied = append(res.Supplied, k)
	}
	return res
}

// Complete proposes "name=" for every required, then every optional,
// parameter not yet supplied. It returns the number of proposals.
func (in *Inspector) Complete(ctx context.Context, class host.Class, sink host.CompletionSink) int {
	var out []host.Suggestion
	ok := guard("complete", func() {
		res := in.Lookup(ctx, class)
		if !res.OK() {
			log.Debugf("complete %s: %s", class.Name, res.Abstain)
			return
		}

		add := func(names []string, types map[string]string, required bool) {
			for _, n := range names {
				if res.Has(n) {
					continue
				}
				out = append(out, host.Suggestion{Label: n + "=", Name: n, TypeText: types[n], Required: required})
			}
		}
		add(res.Params.RequiredNames(), res.Params.Required, true)
		add(res.Params.OptionalNames(), res.Params.Optional, false)
	})
	if !ok || ctx.Err() != nil {
		return 0
	}

	for _, s := range out {
		sink.Add(s)
	}
	return len(out)
}

// CheckRequired reports an error on the argument list for every required
// parameter that was not supplied.
func (in *Inspector) CheckRequired(ctx context.Context, class host.Class, sink host.ProblemSink) int {
	var out []host.Problem
	ok := guard("check required", func() {
		res := in.Lookup(ctx, class)
		if !res.OK() {
			return
		}
		for _, n := range res.Params.RequiredNames() {
			if res.Has(n) {
				continue
			}
			out = append(out, host.Problem{
				File:     class.File,
				Class:    class.Name,
				Span:     class.ArgumentList,
				Severity: host.SeverityError,
				Message:  fmt.Sprintf("Command missing required parameter '%s'", n),
			})
		}
	})
	return flush(ctx, ok, out, sink)
}

// CheckTypes reports a warning on the value of every supplied parameter
// whose inferred type does not match the declared one.
func (in *Inspector) CheckTypes(ctx context.Context, class host.Class, sink host.ProblemSink) int {
	if in.types == nil {
		return 0
	}

	var out []host.Problem
	ok := guard("check types", func() {
		res := in.Lookup(ctx, class)
		if !res.OK() {
			return
		}
		for _, arg := range res.Supplied {
			if ctx.Err() != nil {
				return
			}
			declared, _, found := res.Params.Lookup(arg.Name)
			if !found {
				continue
			}
			expected, err := in.types.Parse(declared)
			if err != nil {
				log.WithError(err).Debugf("unparseable type expression %q for %s", declared, arg.Name)
				continue
			}
			actual := in.types.Infer(*arg.Value)
			if in.types.Match(expected, actual) {
				continue
			}
			out = append(out, host.Problem{
				File:     class.File,
				Class:    class.Name,
				Span:     arg.Value.Span,
				Severity: host.SeverityWarning,
				Message: fmt.Sprintf("Expected type '%s', got '%s' instead",
					in.types.DisplayName(expected), in.types.DisplayName(actual)),
			})
		}
	})
	return flush(ctx, ok, out, sink)
}

func flush(ctx context.Context, ok bool, out []host.Problem, sink host.ProblemSink) int {
	if !ok || ctx.Err() != nil {
		return 0
	}
	for _, p := range out {
		sink.Report(p)
	}
	return len(out)
}

// guard runs fn and turns a panic from host code into an abstention.
func guard(op string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("%s: recovered from %v", op, r)
			ok = false
		}
	}()
	fn()
	return true
}
