// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/notify"
	"github.com/staranto/lbctl/internal/vfs"
)

// Entry is one cached schema together with when it was written.
type Entry struct {
	ID        interp.ID
	Data      *lightbulb.Data
	Refreshed time.Time
}

// Reader is the read-only view handed to consumers.
type Reader interface {
	Get(id interp.ID) (*lightbulb.Data, bool)
}

// Cache maps interpreter IDs to schema snapshots. Entries are immutable and
// replaced whole, so a reader either sees the old snapshot or the new one.
type Cache struct {
	mu      sync.RWMutex
	entries map[interp.ID]Entry

	fsys     vfs.FS
	notifier notify.Notifier
	now      func() time.Time

	flights singleflight.Group
	locksMu sync.Mutex
	locks   map[interp.ID]*sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithNotifier sets where user-facing messages go. The default discards them.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Cache) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns an empty cache that loads through fsys.
func New(fsys vfs.FS, opts ...Option) *Cache {
	if fsys == nil {
		fsys = vfs.OS{}
	}
	c := &Cache{
		entries:  make(map[interp.ID]Entry),
		fsys:     fsys,
		notifier: notify.Discard,
		now:      time.Now,
		locks:    make(map[interp.ID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached schema for id. It never blocks on I/O.
func (c *Cache) Get(id interp.ID) (*lightbulb.Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.Data, ok
}

// Put replaces the entry for id. A nil data is ignored.
func (c *Cache) Put(id interp.ID, data *lightbulb.Data) {
	if data == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = Entry{ID: id, Data: data, Refreshed: c.now()}
}

// Invalidate removes the entry for id.
func (c *Cache) Invalidate(id interp.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Flush removes every entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[interp.ID]Entry)
}

// Seed inserts a sentinel for every id that has no entry. Existing entries
// are left alone.
func (c *Cache) Seed(ids ...interp.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, ok := c.entries[id]; ok {
			continue
		}
		c.entries[id] = Entry{ID: id, Data: lightbulb.Sentinel(), Refreshed: c.now()}
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of all entries sorted by ID.
func (c *Cache) Snapshot() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entry returns the full entry for id.
func (c *Cache) Entry(id interp.ID) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

func (c *Cache) lockFor(id interp.ID) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}
