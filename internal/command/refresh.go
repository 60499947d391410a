// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/output"
	"github.com/staranto/lbctl/internal/ui"
)

// RefreshCommandAction flushes the cache and force-reloads every selected
// interpreter. Successful reloads are always announced.
func RefreshCommandAction(ctx context.Context, cmd *cli.Command) error {
	interps, err := SelectInterpreters(cmd)
	if err != nil {
		return err
	}

	sess, err := NewSession(ctx, cmd, interps)
	if err != nil {
		return err
	}
	defer sess.Close()

	outcomes, err := sess.ManualRefresh(ctx)
	if err != nil {
		return err
	}

	return output.Spit(outcomeRows(outcomes), output.OptionsFrom(cmd), stdout(cmd))
}

func outcomeRows(outcomes []cache.Outcome) output.Dataset {
	ds := output.Dataset{Columns: []string{"name", "status", "version", "code", "detail"}}
	for _, o := range outcomes {
		row := map[string]interface{}{
			"name":      o.Interpreter.Name,
			"status":    o.Status.String(),
			"direction": o.Direction.String(),
			"detail":    ui.Describe(o),
		}
		if o.Current != nil && !o.Current.IsSentinel() {
			row["version"] = o.Current.Version()
		}
		if o.Status == cache.Failed {
			row["code"] = o.Code.String()
		}
		if o.Err != nil {
			row["error"] = o.Err.Error()
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// RefreshCommandBuilder constructs the cli.Command for "refresh".
func RefreshCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "refresh",
		Usage:     "flush the cache and reload every interpreter",
		UsageText: "lbctl refresh [options]",
		Meta:      meta,
		Flags:     NewInterpreterFlags("refresh"),
		Action:    RefreshCommandAction,
	}
	return cb.Build()
}
