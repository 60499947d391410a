// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
)

// S3Scheme prefixes interpreter roots that live in an S3 bucket.
const S3Scheme = "s3://"

// ErrNotExist is returned when a file or directory does not exist.
var ErrNotExist = fs.ErrNotExist

// FileInfo is the subset of file metadata the loader needs.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FS is a read-only view over an interpreter's files. Names are either local
// paths or s3:// URIs.
type FS interface {
	Stat(ctx context.Context, name string) (FileInfo, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// IsRemote reports whether name addresses an S3 object.
func IsRemote(name string) bool {
	return strings.HasPrefix(name, S3Scheme)
}

// Join joins path elements onto root, keeping the s3:// scheme intact.
func Join(root string, elem ...string) string {
	if IsRemote(root) {
		rest := strings.TrimPrefix(root, S3Scheme)
		return S3Scheme + path.Join(append([]string{rest}, elem...)...)
	}
	return filepath.Join(append([]string{root}, elem...)...)
}

// OS reads from the local filesystem.
type OS struct{}

// Stat implements FS.
func (OS) Stat(ctx context.Context, name string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(name)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ReadFile implements FS.
func (OS) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(name)
}

// Router dispatches s3:// names to Remote and everything else to Local.
type Router struct {
	Local  FS
	Remote FS
}

// Stat implements FS.
func (r Router) Stat(ctx context.Context, name string) (FileInfo, error) {
	target, err := r.pick(name)
	if err != nil {
		return FileInfo{}, err
	}
	return target.Stat(ctx, name)
}

// ReadFile implements FS.
func (r Router) ReadFile(ctx context.Context, name string) ([]byte, error) {
	target, err := r.pick(name)
	if err != nil {
		return nil, err
	}
	return target.ReadFile(ctx, name)
}

func (r Router) pick(name string) (FS, error) {
	if IsRemote(name) {
		if r.Remote == nil {
			return nil, fmt.Errorf("no remote filesystem configured for %s", name)
		}
		return r.Remote, nil
	}
	if r.Local == nil {
		return OS{}, nil
	}
	return r.Local, nil
}

// IsNotExist reports whether err means the name does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// BlobStore keeps file contents between runs.
type BlobStore interface {
	Read(key string) ([]byte, bool)
	Write(key string, data []byte) error
}

// Cached serves ReadFile from Store when the file's size and modification
// time are unchanged since it was stored. Stat always goes to FS.
type Cached struct {
	FS    FS
	Store BlobStore
}

// Stat implements FS.
func (c Cached) Stat(ctx context.Context, name string) (FileInfo, error) {
	return c.FS.Stat(ctx, name)
}

// ReadFile implements FS.
func (c Cached) ReadFile(ctx context.Context, name string) ([]byte, error) {
	info, err := c.FS.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s\x00%d\x00%d", name, info.Size, info.ModTime.UnixNano())
	if data, ok := c.Store.Read(key); ok {
		log.Debugf("cache hit %s", name)
		return data, nil
	}

	data, err := c.FS.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.Store.Write(key, data); err != nil {
		log.WithError(err).Warnf("failed to cache %s", name)
	}
	return data, nil
}
