// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/inspect"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/output"
	"github.com/staranto/lbctl/internal/pyhost"
)

// ErrProblems is returned by check when at least one error was reported.
var ErrProblems = errors.New("command declarations have errors")

// sourceFile is a parsed file together with the problems found in it.
type sourceFile struct {
	file     *pyhost.File
	problems []host.Problem
}

// CheckCommandAction runs the required-parameter and type inspections over
// every class declared in the given files.
func CheckCommandAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one FILE is required")
	}

	in, _, err := newInspector(ctx, cmd)
	if err != nil {
		return err
	}

	var (
		files []sourceFile
		nerr  int
	)
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		f := pyhost.ParseFile(p, src)

		sink := &host.Problems{}
		for _, c := range f.Classes {
			in.CheckRequired(ctx, c, sink)
			in.CheckTypes(ctx, c, sink)
		}
		problems := sink.All()
		for _, pr := range problems {
			if pr.Severity == host.SeverityError {
				nerr++
			}
		}
		files = append(files, sourceFile{file: f, problems: problems})
	}

	if err := output.Spit(problemRows(files), output.OptionsFrom(cmd), stdout(cmd)); err != nil {
		return err
	}

	if nerr > 0 {
		return fmt.Errorf("%w: %d", ErrProblems, nerr)
	}
	return nil
}

// newInspector scans the selected interpreter and returns an inspector for
// files under --project.
func newInspector(ctx context.Context, cmd *cli.Command) (*inspect.Inspector, interp.Interpreter, error) {
	interps, err := SelectInterpreters(cmd)
	if err != nil {
		return nil, interp.Interpreter{}, err
	}
	// Source files belong to exactly one interpreter, the first one selected.
	i := interps[0]
	if len(interps) > 1 {
		log.Debugf("using interpreter %s of %d", i.Name, len(interps))
	}

	sess, err := NewSession(ctx, cmd, []interp.Interpreter{i})
	if err != nil {
		return nil, i, err
	}
	defer func() { _ = sess.Close() }()

	if _, err := sess.Scan(ctx); err != nil {
		return nil, i, err
	}

	project := pyhost.Project{Dir: cmd.String("project"), Interp: i}
	return sess.Inspector(project, pyhost.Types{}), i, nil
}

func problemRows(files []sourceFile) output.Dataset {
	ds := output.Dataset{Columns: []string{"file", "line", "col", "severity", "class", "message"}}
	for _, sf := range files {
		for _, p := range sf.problems {
			line, col := sf.file.Position(p.Span.Start)
			ds.Rows = append(ds.Rows, map[string]interface{}{
				"file":     p.File,
				"line":     line,
				"col":      col,
				"severity": p.Severity.String(),
				"class":    p.Class,
				"message":  p.Message,
			})
		}
	}
	return ds
}

// CheckCommandBuilder constructs the cli.Command for "check".
func CheckCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "check",
		Usage:     "inspect command declarations in Python files",
		UsageText: "lbctl check [options] FILE...",
		ArgsUsage: "FILE...",
		Meta:      meta,
		Flags:     append(projectFlags(), NewInterpreterFlags("check")...),
		Action:    CheckCommandAction,
	}
	return cb.Build()
}

func projectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "project",
			Usage: "project directory the files belong to; files outside it are skipped",
		},
	}
}
