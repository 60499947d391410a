// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/loader"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/output"
	"github.com/staranto/lbctl/internal/schemadiff"
	"github.com/staranto/lbctl/internal/vfs"
)

// DiffCommandAction compares the schemas installed under two site-packages
// roots.
func DiffCommandAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New("exactly two roots are required")
	}
	roots := cmd.Args().Slice()

	interps := []interp.Interpreter{interp.New("from", roots[0]), interp.New("to", roots[1])}
	fsys, err := NewFS(ctx, cmd, interps)
	if err != nil {
		return err
	}

	from, err := loadRoot(ctx, fsys, interps[0].Root)
	if err != nil {
		return err
	}
	to, err := loadRoot(ctx, fsys, interps[1].Root)
	if err != nil {
		return err
	}

	d, err := schemadiff.Compare(from, to)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if cmd.Bool("delta") {
		text, err := d.Format(cmd.Bool("color"))
		if err != nil {
			return fmt.Errorf("failed to format delta: %w", err)
		}
		fmt.Fprint(w, text)
		return nil
	}

	opts := output.OptionsFrom(cmd)
	if opts.Format == "text" {
		fmt.Fprintln(w, d.Summary.String())
	}

	raw, err := json.MarshalIndent(d.Summary, "", "  ")
	if err != nil {
		return err
	}
	ds := diffRows(from, to, d.Summary)
	ds.Raw = append(raw, '\n')
	return output.Spit(ds, opts, w)
}

func loadRoot(ctx context.Context, fsys vfs.FS, root string) (*lightbulb.Data, error) {
	res := loader.Load(ctx, fsys, root)
	if !res.OK() {
		if res.Err != nil {
			return nil, fmt.Errorf("%s: %s: %w", root, res.Code, res.Err)
		}
		return nil, fmt.Errorf("%s: %s", root, res.Code)
	}
	return res.Data, nil
}

func diffRows(from, to *lightbulb.Data, s schemadiff.Summary) output.Dataset {
	ds := output.Dataset{Columns: []string{"change", "class", "detail"}}
	add := func(change, class string, detail []string) {
		ds.Rows = append(ds.Rows, map[string]interface{}{
			"change": change,
			"class":  class,
			"detail": strings.Join(detail, "; "),
		})
	}

	for _, class := range s.Added {
		p, _ := to.Params(class)
		add("added", class, schemadiff.Describe(lightbulb.ParamData{}, p))
	}
	for _, class := range s.Removed {
		add("removed", class, nil)
	}
	for _, class := range s.Changed {
		a, _ := from.Params(class)
		b, _ := to.Params(class)
		add("changed", class, schemadiff.Describe(a, b))
	}
	return ds
}

// DiffCommandBuilder constructs the cli.Command for "diff".
func DiffCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "diff",
		Usage:     "compare the schemas of two site-packages roots",
		UsageText: "lbctl diff [options] ROOT_A ROOT_B",
		ArgsUsage: "ROOT_A ROOT_B",
		Meta:      meta,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "delta",
				Usage: "print the parameter-level delta instead of a change list",
			},
		}, awsFlags()...),
		Action: DiffCommandAction,
	}
	return cb.Build()
}
