// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/inspect"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/notify"
	"github.com/staranto/lbctl/internal/vfs"
	"github.com/staranto/lbctl/internal/watcher"
)

// DefaultParallelism bounds concurrent interpreter scans.
const DefaultParallelism = 4

// Session is the lifetime of one cache.
type Session struct {
	reg      *interp.Registry
	cache    *cache.Cache
	notifier notify.Notifier
	fsys     vfs.FS
	debounce time.Duration
	parallel int

	mu      sync.Mutex
	watcher *watcher.Watcher
	bg      sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithFS sets the filesystem interpreter roots are read through.
func WithFS(fsys vfs.FS) Option {
	return func(s *Session) { s.fsys = fsys }
}

// WithNotifier sets where user-facing messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithDebounce sets the watcher's coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithParallelism bounds concurrent scans. Values below one mean one.
func WithParallelism(n int) Option {
	return func(s *Session) {
		if n < 1 {
			n = 1
		}
		s.parallel = n
	}
}

// New starts a session over interps. Nothing is read until Scan.
func New(interps []interp.Interpreter, opts ...Option) *Session {
	s := &Session{
		reg:      interp.NewRegistry(interps...),
		notifier: notify.Log{},
		fsys:     vfs.OS{},
		debounce: watcher.DefaultDebounce,
		parallel: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = cache.New(s.fsys, cache.WithNotifier(s.notifier))
	return s
}

// Registry returns the session's interpreters.
func (s *Session) Registry() *interp.Registry {
	return s.reg
}

// Cache returns the session's cache.
func (s *Session) Cache() *cache.Cache {
	return s.cache
}

// Inspector returns an Inspector reading this session's cache.
func (s *Session) Inspector(r host.Resolver, ts host.TypeSystem) *inspect.Inspector {
	return inspect.New(s.cache, r, ts)
}

// Scan seeds a sentinel for every interpreter and refreshes each one without
// forcing. Outcomes are returned in registration order.
func (s *Session) Scan(ctx context.Context) ([]cache.Outcome, error) {
	s.cache.Seed(s.reg.IDs()...)
	return s.refreshAll(ctx, false)
}

// ManualRefresh flushes the cache and force-refreshes every interpreter, so
// every successful reload is announced.
func (s *Session) ManualRefresh(ctx context.Context) ([]cache.Outcome, error) {
	log.Info("manual refresh: flushing schema cache")
	s.cache.Flush()
	s.cache.Seed(s.reg.IDs()...)
	return s.refreshAll(ctx, true)
}

// StartBackground runs Scan on its own goroutine. Close waits for it.
func (s *Session) StartBackground(ctx context.Context) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.Scan(ctx); err != nil {
			log.WithError(err).Debug("background scan stopped")
		}
	}()
}

func (s *Session) refreshAll(ctx context.Context, force bool) ([]cache.Outcome, error) {
	interps := s.reg.All()
	outcomes := make([]cache.Outcome, len(interps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for n, i := range interps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[n] = cache.Outcome{Interpreter: i, Forced: force, Status: cache.Cancelled}
				return err
			}
			outcomes[n] = s.cache.Refresh(gctx, i, force)
			return nil
		})
	}
	err := g.Wait()
	return outcomes, err
}

// Watch starts the change watcher. Calling it again returns the running one.
func (s *Session) Watch(ctx context.Context) (*watcher.Watcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher, nil
	}

	w, err := watcher.New(s.reg, s.cache, watcher.WithDebounce(s.debounce))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}
	s.watcher = w
	return w, nil
}

// Close stops the watcher and waits for background work. The cache is left
// for callers that still hold it but nothing refreshes it any more.
func (s *Session) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	s.bg.Wait()
	return err
}
