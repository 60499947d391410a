// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/loader"
	"github.com/staranto/lbctl/internal/loader/loadertest"
	"github.com/staranto/lbctl/internal/notify"
	"github.com/staranto/lbctl/internal/pyhost"
)

func fixture(t *testing.T) (installed, missing interp.Interpreter) {
	t.Helper()
	root := t.TempDir()
	loadertest.WriteSite(t, root, "2.0.0", loadertest.CommandSchema)
	return interp.New("venv", root), interp.New("bare", t.TempDir())
}

func TestScan(t *testing.T) {
	installed, missing := fixture(t)
	var rec notify.Recorder
	s := New([]interp.Interpreter{installed, missing}, WithNotifier(&rec), WithParallelism(0))
	defer s.Close()

	outcomes, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, cache.Stored, outcomes[0].Status)
	assert.Equal(t, cache.Failed, outcomes[1].Status)
	assert.Equal(t, loader.NotInstalled, outcomes[1].Code)

	d, ok := s.Cache().Get(missing.ID)
	require.True(t, ok)
	assert.True(t, d.IsSentinel())
	assert.Empty(t, rec.Notes(), "background scan is silent")
}

func TestManualRefresh(t *testing.T) {
	installed, missing := fixture(t)
	var rec notify.Recorder
	s := New([]interp.Interpreter{installed, missing}, WithNotifier(&rec))
	defer s.Close()

	_, err := s.Scan(context.Background())
	require.NoError(t, err)
	before, _ := s.Cache().Get(installed.ID)

	outcomes, err := s.ManualRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cache.Stored, outcomes[0].Status)
	assert.True(t, outcomes[0].Forced)

	after, _ := s.Cache().Get(installed.ID)
	assert.NotSame(t, before, after, "manual refresh reloads")
	assert.Equal(t, before.Version(), after.Version())

	notes := rec.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "Lightbulb configuration loaded successfully (venv)", notes[0].Message)
}

func TestScan_Cancelled(t *testing.T) {
	installed, _ := fixture(t)
	s := New([]interp.Interpreter{installed})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, cache.Cancelled, outcomes[0].Status)

	d, ok := s.Cache().Get(installed.ID)
	require.True(t, ok)
	assert.True(t, d.IsSentinel(), "seeded but never loaded")
}

func TestStartBackground_ThenInspect(t *testing.T) {
	installed, _ := fixture(t)
	s := New([]interp.Interpreter{installed})
	s.StartBackground(context.Background())
	require.NoError(t, s.Close())

	in := s.Inspector(pyhost.Project{Interp: installed}, pyhost.Types{})
	f := pyhost.ParseFile("bot.py", []byte("import pkg\nclass A(pkg.Command):\n    pass\n"))
	var sink host.Problems
	assert.Equal(t, 1, in.CheckRequired(context.Background(), f.Classes[0], &sink))
}

func TestWatch(t *testing.T) {
	installed, _ := fixture(t)
	s := New([]interp.Interpreter{installed}, WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := s.Scan(ctx)
	require.NoError(t, err)

	w, err := s.Watch(ctx)
	require.NoError(t, err)
	again, err := s.Watch(ctx)
	require.NoError(t, err)
	assert.Same(t, w, again)

	loadertest.WriteSite(t, installed.Root, "2.0.1", loadertest.CommandSchema)
	assert.Eventually(t, func() bool {
		d, ok := s.Cache().Get(installed.ID)
		return ok && d.Version() == "2.0.1"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
}
