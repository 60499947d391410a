// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"strconv"

	"github.com/apex/log"
	goversion "github.com/hashicorp/go-version"

	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/loader"
	"github.com/staranto/lbctl/internal/notify"
)

const (
	msgLoaded = "Lightbulb configuration loaded successfully (%s)"
	msgFailed = "Could not load lightbulb configuration for interpreter '%s' - code: %s"
)

// Status summarises what a refresh did to the cache.
type Status int

const (
	// Unchanged means the cached version already matched the installed one.
	Unchanged Status = iota
	// Stored means a freshly loaded schema replaced the entry.
	Stored
	// Failed means the loader reported a problem. The entry was not changed.
	Failed
	// Cancelled means the context ended before anything was committed.
	Cancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Stored:
		return "stored"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Direction classifies a stored version relative to the one it replaced.
type Direction int

const (
	NoChange Direction = iota
	Fresh
	Upgrade
	Downgrade
	Reinstall
	Changed
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Fresh:
		return "fresh"
	case Upgrade:
		return "upgrade"
	case Downgrade:
		return "downgrade"
	case Reinstall:
		return "reinstall"
	case Changed:
		return "changed"
	default:
		return "none"
	}
}

// Outcome reports a single refresh.
type Outcome struct {
	Interpreter interp.Interpreter
	Forced      bool
	Status      Status
	Code        loader.Code
	Err         error
	// Previous is the real schema that was replaced, nil for sentinels.
	Previous  *lightbulb.Data
	Current   *lightbulb.Data
	Direction Direction
}

// Refresh reloads the schema of i. Unless force is set, a cached entry whose
// version matches the installed version is kept without parsing the schema.
// Concurrent refreshes of one interpreter share a single load. A caller that
// joined a load cancelled by another caller loads again under its own ctx.
func (c *Cache) Refresh(ctx context.Context, i interp.Interpreter, force bool) Outcome {
	key := string(i.ID) + "|" + strconv.FormatBool(force)
	for {
		if ctx.Err() != nil {
			return Outcome{Interpreter: i, Forced: force, Status: Cancelled}
		}
		v, _, _ := c.flights.Do(key, func() (any, error) {
			l := c.lockFor(i.ID)
			l.Lock()
			defer l.Unlock()
			return c.refresh(ctx, i, force), nil
		})
		out := v.(Outcome)
		if out.Status == Cancelled && ctx.Err() == nil {
			log.WithField("interpreter", i.Name).Debug("shared refresh was cancelled, retrying")
			continue
		}
		return out
	}
}

func (c *Cache) refresh(ctx context.Context, i interp.Interpreter, force bool) Outcome {
	out := Outcome{Interpreter: i, Forced: force}
	logger := log.WithField("interpreter", i.Name)

	prev, hasPrev := c.Get(i.ID)
	if hasPrev && !prev.IsSentinel() {
		out.Previous = prev
	}
	out.Current = prev

	var res loader.Result
	if !force && out.Previous != nil {
		peek := loader.PeekVersion(ctx, c.fsys, i.Root)
		if ctx.Err() != nil {
			out.Status = Cancelled
			return out
		}
		if peek.OK() && peek.Version == prev.Version() {
			logger.Debugf("version %s unchanged", peek.Version)
			out.Status = Unchanged
			return out
		}
		if !peek.OK() {
			res = peek
		}
	}

	if res.Code == loader.None {
		res = loader.Load(ctx, c.fsys, i.Root)
	}
	if ctx.Err() != nil {
		out.Status = Cancelled
		return out
	}

	out.Code = res.Code
	out.Err = res.Err
	if !res.OK() {
		out.Status = Failed
		c.reportFailure(i, res, force)
		if !hasPrev {
			c.Seed(i.ID)
			out.Current, _ = c.Get(i.ID)
		}
		return out
	}

	if !force && out.Previous != nil && out.Previous.Version() == res.Data.Version() {
		out.Status = Unchanged
		return out
	}

	c.Put(i.ID, res.Data)
	out.Status = Stored
	out.Current = res.Data
	out.Direction = classify(out.Previous, res.Data)

	if force {
		c.notifier.Notify(notify.Info, msgLoaded, i.Name)
	}
	logger.Infof("loaded lightbulb %s (%s, %d classes)", res.Version, out.Direction, len(res.Data.Classes()))
	return out
}

func (c *Cache) reportFailure(i interp.Interpreter, res loader.Result, force bool) {
	logger := log.WithField("interpreter", i.Name).WithField("code", res.Code.String())
	if res.Err != nil {
		logger = logger.WithError(res.Err)
	}

	switch {
	case res.Code.Expected():
		logger.Info("lightbulb schema unavailable")
	case res.Code == loader.VersionParseFailed && !force:
		logger.Info("skipping interpreter with unreadable version marker")
	default:
		logger.Warn("failed to load lightbulb schema")
		c.notifier.Notify(notify.Warning, msgFailed, i.Name, res.Code.String())
	}
}

// classify compares the replaced schema with the new one.
func classify(prev, cur *lightbulb.Data) Direction {
	if prev == nil {
		return Fresh
	}
	if prev.Version() == cur.Version() {
		return Reinstall
	}

	a, errA := goversion.NewVersion(prev.Version())
	b, errB := goversion.NewVersion(cur.Version())
	if errA != nil || errB != nil {
		return Changed
	}
	switch a.Compare(b) {
	case -1:
		return Upgrade
	case 1:
		return Downgrade
	default:
		return Reinstall
	}
}
