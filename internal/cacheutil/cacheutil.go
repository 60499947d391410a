// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/blake2b"
)

// Dir resolves the base cache directory.
// Precedence:
//  1. LBCTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/lbctl
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("LBCTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "lbctl"), true
	}
	return "", false
}

// Enabled returns true unless LBCTL_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("LBCTL_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// Purge removes cached files older than maxAge. A non-positive maxAge
// disables purging.
func Purge(maxAge time.Duration) error {
	if maxAge <= 0 {
		log.Debug("cache purge disabled")
		return nil
	}
	base, ok := Dir()
	if !ok {
		return nil
	}

	var removed int
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || time.Since(info.ModTime()) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.WithError(err).Warnf("failed to remove cache file %s", path)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	log.Debugf("purged %d cache files from %s", removed, base)
	return nil
}

// Store keeps opaque blobs beneath a subdirectory of the cache base. The
// zero Store writes to the base itself.
type Store struct {
	Subdirs []string
}

func (s Store) path(key string) (string, bool) {
	base, ok := Dir()
	if !ok {
		return "", false
	}
	return filepath.Join(append(append([]string{base}, s.Subdirs...), encodeKey(key))...), true
}

// Read returns the blob stored under key.
func (s Store) Read(key string) ([]byte, bool) {
	if !Enabled() {
		return nil, false
	}
	p, ok := s.path(key)
	if !ok {
		return nil, false
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Write stores data under key. Creates directories as needed.
func (s Store) Write(key string, data []byte) error {
	if !Enabled() {
		return nil // treat as disabled.
	}
	p, ok := s.path(key)
	if !ok {
		return nil // treat as disabled.
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	// Write then rename so a concurrent reader never sees a partial blob.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// encodeKey hashes k with BLAKE2b-256 and returns the hex string.
func encodeKey(k string) string {
	sum := blake2b.Sum256([]byte(k))
	return hex.EncodeToString(sum[:])
}
