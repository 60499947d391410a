// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/pyhost"
)

var venv = interp.New("venv", "/envs/venv/site-packages")

func commandSchema() *lightbulb.Data {
	return lightbulb.New("2.0.0", map[string]lightbulb.ParamData{
		"pkg.Command": lightbulb.NewParamData(map[string]string{"name": "str"}, nil),
	})
}

func newInspector(data *lightbulb.Data) *Inspector {
	c := cache.New(nil)
	if data != nil {
		c.Put(venv.ID, data)
	}
	return New(c, pyhost.Project{Interp: venv}, pyhost.Types{})
}

func parseClass(t *testing.T, src string) host.Class {
	t.Helper()
	f := pyhost.ParseFile("bot/commands.py", []byte(src))
	require.NotEmpty(t, f.Classes, "no class in %q", src)
	return f.Classes[len(f.Classes)-1]
}

func TestCheckRequired_Missing(t *testing.T) {
	in := newInspector(commandSchema())
	class := parseClass(t, "import pkg\n\nclass Ping(pkg.Command):\n    pass\n")

	var sink host.Problems
	n := in.CheckRequired(context.Background(), class, &sink)

	require.Equal(t, 1, n)
	p := sink.All()[0]
	assert.Equal(t, host.SeverityError, p.Severity)
	assert.Equal(t, "Command missing required parameter 'name'", p.Message)
	assert.Equal(t, class.ArgumentList, p.Span)
	assert.Equal(t, "Ping", p.Class)
}

func TestCheckTypes(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     int
		message  string
		valueSrc string
	}{
		{
			name:     "int where str expected",
			src:      "from pkg import Command\n\nclass Ping(Command, name=123):\n    pass\n",
			want:     1,
			message:  "Expected type 'str', got 'int' instead",
			valueSrc: "123",
		},
		{
			name: "str literal matches",
			src:  "from pkg import Command\n\nclass Ping(Command, name=\"bob\"):\n    pass\n",
		},
		{
			name: "unknown expression is not flagged",
			src:  "from pkg import Command\n\nclass Ping(Command, name=NAME):\n    pass\n",
		},
		{
			name:     "first duplicate wins",
			src:      "import pkg\n\nclass Ping(pkg.Command, name=1, name=\"x\"):\n    pass\n",
			want:     1,
			message:  "Expected type 'str', got 'int' instead",
			valueSrc: "1",
		},
		{
			name: "parameters outside the schema are ignored",
			src:  "import pkg\n\nclass Ping(pkg.Command, name=\"x\", colour=3):\n    pass\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInspector(commandSchema())
			f := pyhost.ParseFile("bot/commands.py", []byte(tt.src))
			require.Len(t, f.Classes, 1)
			class := f.Classes[0]

			var sink host.Problems
			n := in.CheckTypes(context.Background(), class, &sink)
			require.Equal(t, tt.want, n)
			if tt.want == 0 {
				return
			}
			p := sink.All()[0]
			assert.Equal(t, host.SeverityWarning, p.Severity)
			assert.Equal(t, tt.message, p.Message)
			assert.Equal(t, tt.valueSrc, f.Text(p.Span))

			var required host.Problems
			assert.Equal(t, 0, in.CheckRequired(context.Background(), class, &required))
		})
	}
}

func TestComplete(t *testing.T) {
	schema := lightbulb.New("2.0.0", map[string]lightbulb.ParamData{
		"pkg.Command": lightbulb.NewParamData(
			map[string]string{"name": "str", "description": "str"},
			map[string]string{"nsfw": "bool", "dm_enabled": "bool | None"},
		),
	})
	in := newInspector(schema)

	t.Run("all parameters, required first", func(t *testing.T) {
		var sink host.Suggestions
		n := in.Complete(context.Background(), parseClass(t, "import pkg\nclass A(pkg.Command):\n    pass\n"), &sink)
		require.Equal(t, 4, n)
		assert.Equal(t, []host.Suggestion{
			{Label: "description=", Name: "description", TypeText: "str", Required: true},
			{Label: "name=", Name: "name", TypeText: "str", Required: true},
			{Label: "dm_enabled=", Name: "dm_enabled", TypeText: "bool | None"},
			{Label: "nsfw=", Name: "nsfw", TypeText: "bool"},
		}, sink.All())
	})

	t.Run("supplied names are excluded", func(t *testing.T) {
		var sink host.Suggestions
		in.Complete(context.Background(), parseClass(t, "import pkg\nclass A(pkg.Command, name=whatever, nsfw=):\n    pass\n"), &sink)
		labels := make([]string, 0)
		for _, s := range sink.All() {
			labels = append(labels, s.Label)
		}
		assert.NotContains(t, labels, "name=")
		assert.Contains(t, labels, "nsfw=", "a keyword without a value is not supplied")
	})
}

func TestAbsentSchemaSilence(t *testing.T) {
	src := "import pkg\nclass A(pkg.Command, name=1):\n    pass\n"

	tests := []struct {
		name string
		data *lightbulb.Data
	}{
		{"never scanned", nil},
		{"sentinel", lightbulb.Sentinel()},
		{"installed without classes", lightbulb.New("2.0.0", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInspector(tt.data)
			class := parseClass(t, src)
			ctx := context.Background()

			var problems host.Problems
			var suggestions host.Suggestions
			assert.NotPanics(t, func() {
				assert.Zero(t, in.Complete(ctx, class, &suggestions))
				assert.Zero(t, in.CheckRequired(ctx, class, &problems))
				assert.Zero(t, in.CheckTypes(ctx, class, &problems))
			})
			assert.Empty(t, problems.All())
			assert.Empty(t, suggestions.All())
		})
	}
}

func TestLookup_Reasons(t *testing.T) {
	c := cache.New(nil)
	c.Put(venv.ID, commandSchema())
	other := interp.New("other", "/envs/other")
	c.Seed(other.ID)
	unscanned := interp.New("unscanned", "/envs/none")

	tests := []struct {
		name     string
		resolver host.Resolver
		class    host.Class
		want     Reason
	}{
		{"no module", pyhost.Project{Interp: venv}, host.Class{Superclasses: []string{"pkg.Command"}}, NoModule},
		{"no interpreter", pyhost.Project{}, host.Class{File: "a.py"}, NoInterpreter},
		{"not scanned", pyhost.Project{Interp: unscanned}, host.Class{File: "a.py"}, NotScanned},
		{"sentinel", pyhost.Project{Interp: other}, host.Class{File: "a.py"}, NoSchema},
		{"no superclass", pyhost.Project{Interp: venv}, host.Class{File: "a.py", Superclasses: []string{"object"}}, NoSuperclass},
		{"ok", pyhost.Project{Interp: venv}, host.Class{File: "a.py", Superclasses: []string{"x.Base", "pkg.Command"}}, Ok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(c, tt.resolver, pyhost.Types{}).Lookup(context.Background(), tt.class)
			assert.Equal(t, tt.want, res.Abstain, "got %s", res.Abstain)
		})
	}
}

func TestLookup_FirstMatchingSuperclass(t *testing.T) {
	schema := lightbulb.New("2.0.0", map[string]lightbulb.ParamData{
		"lightbulb.commands.commands.SlashCommand": lightbulb.NewParamData(map[string]string{"name": "str"}, nil),
		"lightbulb.commands.commands.UserCommand":  lightbulb.NewParamData(map[string]string{"name": "str", "guilds": "list[int]"}, nil),
	})
	in := newInspector(schema)
	class := parseClass(t, "import lightbulb\nclass A(Mixin, lightbulb.UserCommand, lightbulb.SlashCommand):\n    pass\n")

	res := in.Lookup(context.Background(), class)
	require.True(t, res.OK())
	assert.Equal(t, "lightbulb.commands.commands.UserCommand", res.SchemaKey)
	assert.Equal(t, []string{"guilds", "name"}, res.Params.RequiredNames())
}

func TestCancelled(t *testing.T) {
	in := newInspector(commandSchema())
	class := parseClass(t, "import pkg\nclass A(pkg.Command):\n    pass\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, Cancelled, in.Lookup(ctx, class).Abstain)
	var sink host.Problems
	assert.Zero(t, in.CheckRequired(ctx, class, &sink))
	assert.Empty(t, sink.All())
}

// panicTypes fails inside Infer like a broken host would.
type panicTypes struct{ pyhost.Types }

func (panicTypes) Infer(host.Expr) host.Type {
	panic("inference engine exploded")
}

func TestHostPanicsAreContained(t *testing.T) {
	c := cache.New(nil)
	c.Put(venv.ID, commandSchema())
	in := New(c, pyhost.Project{Interp: venv}, panicTypes{})
	class := parseClass(t, "import pkg\nclass A(pkg.Command, name=1):\n    pass\n")

	var sink host.Problems
	assert.NotPanics(t, func() {
		assert.Zero(t, in.CheckTypes(context.Background(), class, &sink))
	})
	assert.Empty(t, sink.All())
}
