// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/ui"
)

// WatchCommandAction scans the selected interpreters, then keeps their cache
// entries current until interrupted. On a terminal it shows a live view;
// otherwise it prints one line per refresh.
func WatchCommandAction(ctx context.Context, cmd *cli.Command) error {
	interps, err := SelectInterpreters(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := NewSession(ctx, cmd, interps)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	outcomes, err := sess.Scan(ctx)
	if err != nil {
		return err
	}

	w, err := sess.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	log.Debugf("watching %v", w.Watched())

	out := stdout(cmd)
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) && !cmd.Bool("plain") {
		m := ui.NewWatchModel(interps, sess.Cache().Snapshot(), w.Outcomes())
		return ui.RunWatch(ctx, m)
	}

	for _, o := range outcomes {
		printOutcome(out, o)
	}
	PrintOutcomes(ctx, out, w.Outcomes())
	return nil
}

// PrintOutcomes writes one line per outcome until ctx ends or ch closes.
func PrintOutcomes(ctx context.Context, w io.Writer, ch <-chan cache.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-ch:
			if !ok {
				return
			}
			printOutcome(w, o)
		}
	}
}

func printOutcome(w io.Writer, o cache.Outcome) {
	fmt.Fprintf(w, "%s %s\n", time.Now().Format("15:04:05"), ui.Describe(o))
}

// WatchCommandBuilder constructs the cli.Command for "watch".
func WatchCommandBuilder(meta meta.Meta) *cli.Command {
	cb := CommandBuilder{
		Name:      "watch",
		Usage:     "keep schemas current as packages change",
		UsageText: "lbctl watch [options]",
		Meta:      meta,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "print one line per refresh even on a terminal",
			},
		}, NewInterpreterFlags("watch")...),
		Action: WatchCommandAction,
	}
	return cb.Build()
}
