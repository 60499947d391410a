// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/lbctl/internal/cacheutil"
	"github.com/staranto/lbctl/internal/command"
	"github.com/staranto/lbctl/internal/config"
	mylog "github.com/staranto/lbctl/internal/log"
	"github.com/staranto/lbctl/internal/version"
)

var ctx = context.Background()

const defaultCacheMaxAge = 7 * 24 * time.Hour

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	// Best-effort: the remote read cache is optional.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil {
		log.WithError(err).Debug("remote read cache unavailable")
	} else if ok {
		maxAge, _ := config.GetDuration("cache.max_age", defaultCacheMaxAge)
		if err := cacheutil.Purge(maxAge); err != nil {
			log.WithError(err).Warn("cache purge failed")
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		if !errors.Is(err, command.ErrProblems) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 2
	}

	return 0
}

// mangleArguments expands an @set argument into the flags listed under
// <command>.<set> in lbctl.yaml. Without an explicit @set, <command>.defaults
// is used when present.
func mangleArguments(args []string) []string {
	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	rest := append([]string{}, args[2:]...)

	set := "defaults"
	for i, a := range rest {
		if strings.HasPrefix(a, "@") {
			set = a[1:]
			rest = append(rest[:i], rest[i+1:]...)
			break
		}
	}

	setArgs, _ := config.GetStringSlice(args[1]+"."+set, nil)
	var expanded []string
	for _, arg := range setArgs {
		expanded = append(expanded, strings.Fields(arg)...)
	}

	log.Debugf("set=%s, expanded=%v", set, expanded)
	return append(append(preamble, expanded...), rest...)
}
