// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/loader"
	"github.com/staranto/lbctl/internal/pkgmeta"
)

// DefaultDebounce is how long a burst of signals for one interpreter is
// coalesced before a refresh runs.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned when starting a closed watcher.
var ErrClosed = errors.New("watcher closed")

// Refresher is the part of the cache the watcher drives.
type Refresher interface {
	Refresh(ctx context.Context, i interp.Interpreter, force bool) cache.Outcome
	Get(id interp.ID) (*lightbulb.Data, bool)
	Put(id interp.ID, data *lightbulb.Data)
}

type pending struct {
	interp  interp.Interpreter
	removed bool
	timer   *time.Timer
}

// Watcher schedules refreshes in response to changes under interpreter roots.
type Watcher struct {
	mu sync.Mutex

	reg      *interp.Registry
	cache    Refresher
	debounce time.Duration

	fsw     *fsnotify.Watcher
	watched map[string]bool
	pending map[interp.ID]*pending

	outcomes chan cache.Outcome
	ctx      context.Context
	started  bool
	closed   bool
	closeCh  chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window. Non-positive values keep the
// default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New returns a watcher for the interpreters in reg.
func New(reg *interp.Registry, c Refresher, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		reg:      reg,
		cache:    c,
		debounce: DefaultDebounce,
		fsw:      fsw,
		watched:  make(map[string]bool),
		pending:  make(map[interp.ID]*pending),
		outcomes: make(chan cache.Outcome, 64),
		ctx:      context.Background(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches every local root and its lightbulb package directory, then
// processes events until ctx ends or Close is called. Remote roots are
// skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.ctx = ctx
	w.mu.Unlock()

	for _, i := range w.reg.All() {
		if i.Remote() {
			log.WithField("interpreter", i.Name).Debug("remote root is not watched")
			continue
		}
		w.watch(i.Root)
		w.watch(filepath.Join(i.Root, lightbulb.PackageDir))
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Outcomes delivers the result of every refresh the watcher triggers. The
// channel is closed by Close.
func (w *Watcher) Outcomes() <-chan cache.Outcome {
	return w.outcomes
}

// Watched returns the watched directories.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for p := range w.watched {
		out = append(out, p)
	}
	return out
}

// Close stops event processing, cancels pending refreshes and waits for
// running ones.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for id, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, id)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	close(w.outcomes)
	return err
}

func (w *Watcher) watch(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.watched[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		log.WithError(err).Warnf("failed to watch %s", dir)
		return
	}
	w.watched[dir] = true
	log.Debugf("watching %s", dir)
}

func (w *Watcher) forget(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, dir)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFS(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("filesystem watch error")
		}
	}
}

// handleFS filters a raw filesystem event down to the files that decide the
// schema of the owning interpreters.
func (w *Watcher) handleFS(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	owners := w.reg.Owners(ev.Name)
	if len(owners) == 0 {
		return
	}
	// Owners share one root.
	rel, err := filepath.Rel(owners[0].Root, ev.Name)
	if err != nil {
		return
	}
	gone := ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)

	switch rel {
	case lightbulb.PackageDir:
		if gone {
			w.forget(ev.Name)
		} else if ev.Op.Has(fsnotify.Create) {
			w.watch(ev.Name)
		}
		for _, owner := range owners {
			w.schedule(owner, gone)
		}

	case filepath.Join(lightbulb.PackageDir, lightbulb.SchemaFile),
		filepath.Join(lightbulb.PackageDir, lightbulb.VersionFile):
		for _, owner := range owners {
			w.schedule(owner, false)
		}

	default:
		if filepath.Dir(rel) != "." {
			return
		}
		name, version, ok := pkgmeta.FromDistInfo(rel)
		if !ok {
			return
		}
		for _, owner := range owners {
			w.PackageEvent(pkgmeta.Event{
				Interpreter: owner,
				Package:     pkgmeta.Package{Name: name, Version: version, Location: owner.Root},
				Removed:     gone,
			})
		}
	}
}

// PackageEvent reacts to an install, upgrade or removal reported by the
// package manager. Events for other distributions are ignored, as are
// installs of the version already cached. An event without an interpreter
// goes to every interpreter owning its location.
func (w *Watcher) PackageEvent(ev pkgmeta.Event) {
	if pkgmeta.Normalize(ev.Package.Name) != lightbulb.DistName {
		return
	}

	targets := []interp.Interpreter{ev.Interpreter}
	if ev.Interpreter.ID == "" {
		targets = w.reg.Owners(ev.Package.Location)
		if len(targets) == 0 {
			log.Debugf("package event outside every interpreter root: %s", ev.Package.Location)
			return
		}
	}

	for _, i := range targets {
		if !ev.Removed {
			if cur, ok := w.cache.Get(i.ID); ok && !cur.IsSentinel() && cur.Version() == ev.Package.Version {
				log.WithField("interpreter", i.Name).Debugf("version %s already cached", ev.Package.Version)
				continue
			}
		}
		w.schedule(i, ev.Removed)
	}
}

func (w *Watcher) schedule(i interp.Interpreter, removed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if p, ok := w.pending[i.ID]; ok {
		p.removed = p.removed || removed
		p.timer.Reset(w.debounce)
		return
	}

	p := &pending{interp: i, removed: removed}
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(i.ID) })
	w.pending[i.ID] = p
}

func (w *Watcher) fire(id interp.ID) {
	w.mu.Lock()
	p, ok := w.pending[id]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, id)
	ctx := w.ctx
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	out := w.cache.Refresh(ctx, p.interp, false)
	if p.removed && out.Status == cache.Failed && out.Code == loader.NotInstalled {
		w.cache.Put(id, lightbulb.Sentinel())
		out.Current = lightbulb.Sentinel()
		log.WithField("interpreter", p.interp.Name).Info("lightbulb removed")
	}

	select {
	case w.outcomes <- out:
	default:
		log.Debug("outcome channel full, dropping outcome")
	}
}
