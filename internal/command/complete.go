// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sahilm/fuzzy"
	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/output"
	"github.com/staranto/lbctl/internal/pyhost"
)

// suggestionSource adapts suggestions to fuzzy.Source.
type suggestionSource []host.Suggestion

func (s suggestionSource) String(i int) string { return s[i].Name }
func (s suggestionSource) Len() int            { return len(s) }

// RankSuggestions keeps the suggestions whose name fuzzy-matches prefix,
// best match first. An empty prefix keeps everything in order.
func RankSuggestions(suggestions []host.Suggestion, prefix string) []host.Suggestion {
	if prefix == "" {
		return suggestions
	}
	matches := fuzzy.FindFrom(prefix, suggestionSource(suggestions))
	out := make([]host.Suggestion, 0, len(matches))
	for _, m := range matches {
		out = append(out, suggestions[m.Index])
	}
	return out
}

// CompleteCommandAction proposes the parameters still missing from the
// class enclosing --line.
func CompleteCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("exactly one FILE is required")
	}
	path := cmd.Args().First()

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	f := pyhost.ParseFile(path, src)

	line := int(cmd.Int("line"))
	class, ok := f.ClassAt(line)
	if !ok {
		return fmt.Errorf("no class declaration at %s:%d", path, line)
	}

	in, _, err := newInspector(ctx, cmd)
	if err != nil {
		return err
	}

	sink := &host.Suggestions{}
	in.Complete(ctx, class, sink)
	suggestions := RankSuggestions(sink.All(), cmd.String("prefix"))

	ds := output.Dataset{Columns: []string{"label", "type", "required"}}
	for _, s := range suggestions {
		ds.Rows = append(ds.Rows, map[string]interface{}{
			"label":    s.Label,
			"name":     s.Name,
			"type":     s.TypeText,
			"required": s.Required,
		})
	}
	return output.Spit(ds, output.OptionsFrom(cmd), stdout(cmd))
}

// CompleteCommandBuilder constructs the cli.Command for "complete".
func CompleteCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "complete",
		Usage:     "propose missing parameters for the class at a line",
		UsageText: "lbctl complete [options] --line N FILE",
		ArgsUsage: "FILE",
		Meta:      meta,
		Flags: append(append([]cli.Flag{
			&cli.IntFlag{
				Name:     "line",
				Aliases:  []string{"l"},
				Usage:    "1-based line inside the class declaration",
				Required: true,
				Validator: func(value int) error {
					return FlagValidators(value, PositiveIntValidator)
				},
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "typed prefix used to rank and filter proposals",
			},
		}, projectFlags()...), NewInterpreterFlags("complete")...),
		Action: CompleteCommandAction,
	}
	return cb.Build()
}
