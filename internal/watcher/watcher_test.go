// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/loader"
	"github.com/staranto/lbctl/internal/loader/loadertest"
	"github.com/staranto/lbctl/internal/pkgmeta"
)

// fakeRefresher records refresh calls and answers with a fixed outcome.
type fakeRefresher struct {
	mu      sync.Mutex
	calls   []interp.Interpreter
	entries map[interp.ID]*lightbulb.Data
	status  cache.Status
	code    loader.Code
}

func newFake() *fakeRefresher {
	return &fakeRefresher{entries: make(map[interp.ID]*lightbulb.Data), status: cache.Stored}
}

func (f *fakeRefresher) Refresh(_ context.Context, i interp.Interpreter, force bool) cache.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, i)
	return cache.Outcome{Interpreter: i, Forced: force, Status: f.status, Code: f.code}
}

func (f *fakeRefresher) Get(id interp.ID) (*lightbulb.Data, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.entries[id]
	return d, ok
}

func (f *fakeRefresher) Put(id interp.ID, d *lightbulb.Data) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[id] = d
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRefresher) calledFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

func newWatcher(t *testing.T, f Refresher, interps ...interp.Interpreter) *Watcher {
	t.Helper()
	w, err := New(interp.NewRegistry(interps...), f, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestHandleFS_Candidates(t *testing.T) {
	root := "/envs/a/site-packages"
	a := interp.New("a", root)

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want int
	}{
		{"schema write", filepath.Join(root, "lightbulb", "metaparams.json"), fsnotify.Write, 1},
		{"version write", filepath.Join(root, "lightbulb", "__init__.py"), fsnotify.Write, 1},
		{"package dir created", filepath.Join(root, "lightbulb"), fsnotify.Create, 1},
		{"dist-info created", filepath.Join(root, "hikari_lightbulb-3.0.1.dist-info"), fsnotify.Create, 1},
		{"other module", filepath.Join(root, "lightbulb", "client.py"), fsnotify.Write, 0},
		{"other package", filepath.Join(root, "hikari-2.1.0.dist-info"), fsnotify.Create, 0},
		{"nested metaparams", filepath.Join(root, "vendor", "lightbulb", "metaparams.json"), fsnotify.Write, 0},
		{"chmod only", filepath.Join(root, "lightbulb", "metaparams.json"), fsnotify.Chmod, 0},
		{"outside root", "/envs/b/lightbulb/metaparams.json", fsnotify.Write, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			w := newWatcher(t, f, a)

			w.handleFS(fsnotify.Event{Name: tt.path, Op: tt.op})
			if tt.want == 0 {
				time.Sleep(60 * time.Millisecond)
				assert.Equal(t, 0, f.callCount())
				return
			}
			assert.Eventually(t, func() bool { return f.callCount() == tt.want }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestHandleFS_LongestRootOwns(t *testing.T) {
	outer := interp.New("outer", "/envs/a")
	inner := interp.New("inner", "/envs/a/nested/site-packages")
	f := newFake()
	w := newWatcher(t, f, outer, inner)

	w.handleFS(fsnotify.Event{Name: "/envs/a/nested/site-packages/lightbulb/metaparams.json", Op: fsnotify.Write})

	assert.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.calledFor("inner"))
	assert.Equal(t, 0, f.calledFor("outer"))
}

func TestHandleFS_SharedRoot(t *testing.T) {
	py311 := interp.New("py311", "/envs/shared")
	py312 := interp.New("py312", "/envs/shared")

	t.Run("schema file", func(t *testing.T) {
		f := newFake()
		w := newWatcher(t, f, py311, py312)

		w.handleFS(fsnotify.Event{Name: "/envs/shared/lightbulb/metaparams.json", Op: fsnotify.Write})

		assert.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, f.calledFor("py311"))
		assert.Equal(t, 1, f.calledFor("py312"))
	})

	t.Run("dist-info", func(t *testing.T) {
		f := newFake()
		f.Put(py311.ID, lightbulb.New("3.0.1", nil))
		f.Put(py312.ID, lightbulb.New("3.0.0", nil))
		w := newWatcher(t, f, py311, py312)

		w.handleFS(fsnotify.Event{Name: "/envs/shared/hikari_lightbulb-3.0.1.dist-info", Op: fsnotify.Create})

		assert.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, f.calledFor("py311"))
		assert.Equal(t, 1, f.calledFor("py312"))
	})

	t.Run("package event by location", func(t *testing.T) {
		f := newFake()
		w := newWatcher(t, f, py311, py312)

		w.PackageEvent(pkgmeta.Event{Package: pkgmeta.Package{Name: "hikari-lightbulb", Version: "3.0.1", Location: "/envs/shared"}})

		assert.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	})
}

func TestSchedule_Debounces(t *testing.T) {
	a := interp.New("a", "/envs/a")
	b := interp.New("b", "/envs/b")
	f := newFake()
	w := newWatcher(t, f, a, b)

	for n := 0; n < 10; n++ {
		w.handleFS(fsnotify.Event{Name: "/envs/a/lightbulb/metaparams.json", Op: fsnotify.Write})
		w.handleFS(fsnotify.Event{Name: "/envs/b/lightbulb/__init__.py", Op: fsnotify.Write})
	}

	assert.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, f.calledFor("a"))
	assert.Equal(t, 1, f.calledFor("b"))

	out := <-w.Outcomes()
	assert.Equal(t, cache.Stored, out.Status)
	assert.False(t, out.Forced)
}

func TestPackageEvent(t *testing.T) {
	a := interp.New("a", "/envs/a")

	tests := []struct {
		name   string
		cached *lightbulb.Data
		ev     pkgmeta.Event
		want   int
	}{
		{
			name:   "same version skipped",
			cached: lightbulb.New("3.0.1", nil),
			ev:     pkgmeta.Event{Interpreter: a, Package: pkgmeta.Package{Name: "hikari-lightbulb", Version: "3.0.1"}},
		},
		{
			name:   "new version refreshes",
			cached: lightbulb.New("3.0.0", nil),
			ev:     pkgmeta.Event{Interpreter: a, Package: pkgmeta.Package{Name: "Hikari_Lightbulb", Version: "3.0.1"}},
			want:   1,
		},
		{
			name:   "sentinel refreshes",
			cached: lightbulb.Sentinel(),
			ev:     pkgmeta.Event{Interpreter: a, Package: pkgmeta.Package{Name: "hikari-lightbulb", Version: "3.0.1"}},
			want:   1,
		},
		{
			name: "other package ignored",
			ev:   pkgmeta.Event{Interpreter: a, Package: pkgmeta.Package{Name: "hikari", Version: "2.1.0"}},
		},
		{
			name: "resolved by location",
			ev:   pkgmeta.Event{Package: pkgmeta.Package{Name: "hikari-lightbulb", Version: "3.0.1", Location: "/envs/a"}},
			want: 1,
		},
		{
			name: "location outside roots",
			ev:   pkgmeta.Event{Package: pkgmeta.Package{Name: "hikari-lightbulb", Version: "3.0.1", Location: "/elsewhere"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			if tt.cached != nil {
				f.Put(a.ID, tt.cached)
			}
			w := newWatcher(t, f, a)

			w.PackageEvent(tt.ev)
			if tt.want == 0 {
				time.Sleep(60 * time.Millisecond)
				assert.Equal(t, 0, f.callCount())
				return
			}
			assert.Eventually(t, func() bool { return f.callCount() == tt.want }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestPackageEvent_RemovalLeavesSentinel(t *testing.T) {
	a := interp.New("a", "/envs/a")
	f := newFake()
	f.status, f.code = cache.Failed, loader.NotInstalled
	f.Put(a.ID, lightbulb.New("3.0.1", nil))
	w := newWatcher(t, f, a)

	w.PackageEvent(pkgmeta.Event{Interpreter: a, Package: pkgmeta.Package{Name: "hikari-lightbulb", Version: "3.0.1"}, Removed: true})

	var out cache.Outcome
	select {
	case out = <-w.Outcomes():
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}
	assert.Equal(t, cache.Failed, out.Status)
	d, ok := f.Get(a.ID)
	require.True(t, ok)
	assert.True(t, d.IsSentinel())
}

func TestWatcher_EndToEnd(t *testing.T) {
	root := t.TempDir()
	loadertest.WriteSite(t, root, "2.0.0", loadertest.CommandSchema)
	a := interp.New("a", root)
	remote := interp.New("remote", "s3://bucket/site-packages")

	c := cache.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Equal(t, cache.Stored, c.Refresh(ctx, a, false).Status)

	w := newWatcher(t, c, a, remote)
	require.NoError(t, w.Start(ctx))
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "lightbulb")}, w.Watched())

	loadertest.WriteSite(t, root, "2.1.0", `{"pkg.Command": {"required": {"name": "str", "description": "str"}}}`)

	assert.Eventually(t, func() bool {
		d, ok := c.Get(a.ID)
		return ok && d.Version() == "2.1.0"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "lightbulb")))
	assert.Eventually(t, func() bool {
		d, ok := c.Get(a.ID)
		return ok && d.IsSentinel()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_Close(t *testing.T) {
	f := newFake()
	w, err := New(interp.NewRegistry(), f)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Start(context.Background()), ErrClosed)

	_, open := <-w.Outcomes()
	assert.False(t, open)
}
