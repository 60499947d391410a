// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package interp

import (
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/staranto/lbctl/internal/vfs"
)

// ID is an opaque, stable interpreter key.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Short returns the first 12 characters of id for display.
func (id ID) Short() string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}

// MakeID derives the ID of the interpreter called name whose packages live
// under root.
func MakeID(name, root string) ID {
	sum := blake2b.Sum256([]byte(name + "\x00" + root))
	return ID(hex.EncodeToString(sum[:]))
}

// Interpreter is one Python environment.
type Interpreter struct {
	ID     ID     `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Root   string `json:"root" yaml:"root"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// New returns an Interpreter rooted at root. Local roots are cleaned and made
// absolute when possible.
func New(name, root string) Interpreter {
	root = normalizeRoot(root)
	return Interpreter{ID: MakeID(name, root), Name: name, Root: root}
}

// Remote reports whether the interpreter's root is an s3:// URI.
func (i Interpreter) Remote() bool {
	return vfs.IsRemote(i.Root)
}

// String implements fmt.Stringer.
func (i Interpreter) String() string {
	return fmt.Sprintf("%s (%s)", i.Name, i.Root)
}

func normalizeRoot(root string) string {
	if vfs.IsRemote(root) {
		rest := strings.TrimPrefix(root, vfs.S3Scheme)
		return vfs.S3Scheme + strings.TrimSuffix(path.Clean(rest), "/")
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

// Contains reports whether p is root or lies beneath it.
func Contains(root, p string) bool {
	if vfs.IsRemote(root) != vfs.IsRemote(p) {
		return false
	}
	if vfs.IsRemote(root) {
		return p == root || strings.HasPrefix(p, root+"/")
	}

	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Registry is the set of interpreters known to a session. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byID  map[ID]Interpreter
	order []ID
}

// NewRegistry returns a registry holding interps.
func NewRegistry(interps ...Interpreter) *Registry {
	r := &Registry{byID: make(map[ID]Interpreter)}
	for _, i := range interps {
		r.Add(i)
	}
	return r
}

// Add registers i. It returns false when an interpreter with the same ID is
// already present.
func (r *Registry) Add(i Interpreter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byID[i.ID]; dup {
		return false
	}
	r.byID[i.ID] = i
	r.order = append(r.order, i.ID)
	return true
}

// Get returns the interpreter with id.
func (r *Registry) Get(id ID) (Interpreter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	return i, ok
}

// ByName returns the first interpreter registered under name.
func (r *Registry) ByName(name string) (Interpreter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if i := r.byID[id]; i.Name == name {
			return i, true
		}
	}
	return Interpreter{}, false
}

// All returns the interpreters in registration order.
func (r *Registry) All() []Interpreter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Interpreter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the interpreter IDs in registration order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ID(nil), r.order...)
}

// Len returns the number of registered interpreters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Owner returns the interpreter whose root contains p. When roots nest, the
// longest root wins. Ties go to the earliest registration.
func (r *Registry) Owner(p string) (Interpreter, bool) {
	owners := r.Owners(p)
	if len(owners) == 0 {
		return Interpreter{}, false
	}
	return owners[0], true
}

// Owners returns every interpreter whose root is the longest root containing
// p, in registration order. Interpreters sharing a root all own its files.
func (r *Registry) Owners(p string) []Interpreter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owners []Interpreter
	for _, id := range r.order {
		i := r.byID[id]
		if !Contains(i.Root, p) {
			continue
		}
		switch {
		case len(owners) == 0 || len(i.Root) == len(owners[0].Root):
			owners = append(owners, i)
		case len(i.Root) > len(owners[0].Root):
			owners = append(owners[:0], i)
		}
	}
	return owners
}

// Roots returns the distinct local roots, sorted.
func (r *Registry) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var roots []string
	for _, i := range r.byID {
		if i.Remote() || seen[i.Root] {
			continue
		}
		seen[i.Root] = true
		roots = append(roots, i.Root)
	}
	sort.Strings(roots)
	return roots
}
