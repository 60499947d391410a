// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/output"
	"github.com/staranto/lbctl/internal/pkgmeta"
	"github.com/staranto/lbctl/internal/ui"
)

// ShowCommandAction scans every selected interpreter and renders its cache
// entry, or every parameter with --params.
func ShowCommandAction(ctx context.Context, cmd *cli.Command) error {
	interps, err := SelectInterpreters(cmd)
	if err != nil {
		return err
	}

	sess, err := NewSession(ctx, cmd, interps)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, err := sess.Scan(ctx); err != nil {
		return err
	}

	var ds output.Dataset
	if cmd.Bool("params") {
		ds = paramRows(sess.Cache(), interps)
	} else {
		ds = entryRows(ctx, sess.Cache(), pkgmeta.Dir{}, interps)
	}

	raw, err := rawDocuments(sess.Cache(), interps)
	if err != nil {
		return err
	}
	ds.Raw = raw

	return output.Spit(ds, output.OptionsFrom(cmd), stdout(cmd))
}

// entryRows renders one row per interpreter. dist is the version the
// package manager recorded, which can disagree with the version marker after
// an interrupted upgrade.
func entryRows(ctx context.Context, c *cache.Cache, pkgs pkgmeta.Provider, interps []interp.Interpreter) output.Dataset {
	ds := output.Dataset{Columns: []string{"name", "version", "dist", "classes", "state", "refreshed", "root"}}
	for _, i := range interps {
		e, ok := c.Entry(i.ID)
		row := map[string]interface{}{
			"name":  i.Name,
			"id":    i.ID.Short(),
			"root":  i.Root,
			"state": ui.State(e.Data, ok),
		}
		if ok && !e.Data.IsSentinel() {
			row["version"] = e.Data.Version()
			row["classes"] = len(e.Data.Classes())
			row["refreshed"] = e.Refreshed
		}
		if !i.Remote() {
			if dist, ok := installedDist(ctx, pkgs, i.Root); ok {
				row["dist"] = dist
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func installedDist(ctx context.Context, pkgs pkgmeta.Provider, root string) (string, bool) {
	list, err := pkgs.List(ctx, root)
	if err != nil {
		log.WithError(err).Debugf("failed to list distributions under %s", root)
		return "", false
	}
	p, ok := pkgmeta.Find(list, lightbulb.DistName)
	return p.Version, ok
}

func paramRows(c *cache.Cache, interps []interp.Interpreter) output.Dataset {
	ds := output.Dataset{Columns: []string{"interpreter", "class", "param", "type", "required"}}
	for _, i := range interps {
		data, ok := c.Get(i.ID)
		if !ok {
			continue
		}
		for _, class := range data.Classes() {
			p, _ := data.Params(class)
			add := func(names []string, types map[string]string, required bool) {
				for _, n := range names {
					ds.Rows = append(ds.Rows, map[string]interface{}{
						"interpreter": i.Name,
						"class":       class,
						"param":       n,
						"type":        types[n],
						"required":    required,
					})
				}
			}
			add(p.RequiredNames(), p.Required, true)
			add(p.OptionalNames(), p.Optional, false)
		}
	}
	log.Debugf("%d parameter rows", len(ds.Rows))
	return ds
}

// rawDocuments renders the loaded schemas keyed by interpreter name.
func rawDocuments(c *cache.Cache, interps []interp.Interpreter) ([]byte, error) {
	docs := make(map[string]lightbulb.Document)
	for _, i := range interps {
		if data, ok := c.Get(i.ID); ok && !data.IsSentinel() {
			docs[i.Name] = data.Document()
		}
	}
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schemas: %w", err)
	}
	return append(b, '\n'), nil
}

// ShowCommandBuilder constructs the cli.Command for "show".
func ShowCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "show",
		Usage:     "show cached schemas per interpreter",
		UsageText: "lbctl show [options]",
		Meta:      meta,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "list every parameter instead of one row per interpreter",
			},
		}, NewInterpreterFlags("show")...),
		Action: ShowCommandAction,
	}
	return cb.Build()
}
