// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package pkgmeta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/lbctl/internal/interp"
)

// DistInfoSuffix ends every installed distribution's metadata directory.
const DistInfoSuffix = ".dist-info"

// Package is one installed distribution.
type Package struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Location string `json:"location" yaml:"location"`
}

// Event reports that a distribution was installed, upgraded or removed.
type Event struct {
	Interpreter interp.Interpreter
	Package     Package
	Removed     bool
}

// Provider lists installed distributions.
type Provider interface {
	List(ctx context.Context, root string) ([]Package, error)
}

var separators = regexp.MustCompile(`[-_.]+`)

// Normalize returns the canonical form of a distribution name, so that
// "Hikari_Lightbulb" and "hikari-lightbulb" compare equal.
func Normalize(name string) string {
	return separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// IsDistInfo reports whether base names a dist-info directory.
func IsDistInfo(base string) bool {
	return strings.HasSuffix(base, DistInfoSuffix) && strings.Contains(base, "-")
}

// FromDistInfo splits a dist-info directory name such as
// "hikari_lightbulb-3.0.1.dist-info" into name and version.
func FromDistInfo(base string) (name, version string, ok bool) {
	if !IsDistInfo(base) {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, DistInfoSuffix)
	name, version, ok = strings.Cut(stem, "-")
	if !ok || name == "" || version == "" {
		return "", "", false
	}
	return name, version, true
}

// Dir reads dist-info directories from a local filesystem.
type Dir struct{}

// List implements Provider. Entries with unreadable metadata fall back to the
// name and version encoded in the directory name.
func (Dir) List(ctx context.Context, root string) ([]Package, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	var pkgs []Package
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || !IsDistInfo(e.Name()) {
			continue
		}

		dir := filepath.Join(root, e.Name())
		p, err := ReadMetadata(dir)
		if err != nil {
			log.WithError(err).Debugf("falling back to directory name for %s", dir)
			name, version, ok := FromDistInfo(e.Name())
			if !ok {
				continue
			}
			p = Package{Name: name, Version: version, Location: root}
		}
		pkgs = append(pkgs, p)
	}

	sort.Slice(pkgs, func(i, j int) bool { return Normalize(pkgs[i].Name) < Normalize(pkgs[j].Name) })
	return pkgs, nil
}

// ReadMetadata parses the METADATA file of one dist-info directory.
func ReadMetadata(distInfo string) (Package, error) {
	raw, err := os.ReadFile(filepath.Join(distInfo, "METADATA"))
	if err != nil {
		return Package{}, err
	}
	p, err := ParseMetadata(raw)
	if err != nil {
		return Package{}, fmt.Errorf("failed to parse %s: %w", distInfo, err)
	}
	p.Location = filepath.Dir(distInfo)
	return p, nil
}

// ParseMetadata reads the Name and Version headers of a core metadata
// document. The body after the first blank line is ignored.
func ParseMetadata(raw []byte) (Package, error) {
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	hdr, err := r.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return Package{}, err
	}

	p := Package{Name: hdr.Get("Name"), Version: hdr.Get("Version")}
	if p.Name == "" || p.Version == "" {
		return Package{}, fmt.Errorf("metadata lacks Name or Version")
	}
	return p, nil
}

// Find returns the package named name, compared after normalisation.
func Find(pkgs []Package, name string) (Package, bool) {
	want := Normalize(name)
	for _, p := range pkgs {
		if Normalize(p.Name) == want {
			return p, true
		}
	}
	return Package{}, false
}
