// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package pyhost

import (
	"path/filepath"
	"strings"

	"github.com/staranto/lbctl/internal/host"
	"github.com/staranto/lbctl/internal/interp"
)

// Project resolves every file under Dir to a single interpreter. An empty Dir
// accepts any file.
type Project struct {
	Dir    string
	Interp interp.Interpreter
}

var _ host.Resolver = Project{}

// Module implements host.Resolver. The module name is the dotted path of the
// file relative to Dir.
func (p Project) Module(c host.Class) (string, bool) {
	if c.File == "" {
		return "", false
	}
	file, err := filepath.Abs(c.File)
	if err != nil {
		return "", false
	}

	base := filepath.Dir(file)
	if p.Dir != "" {
		dir, err := filepath.Abs(p.Dir)
		if err != nil || !interp.Contains(dir, file) {
			return "", false
		}
		base = dir
	}

	rel, err := filepath.Rel(base, file)
	if err != nil {
		return "", false
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = strings.TrimSuffix(rel, string(filepath.Separator)+"__init__")
	return strings.ReplaceAll(rel, string(filepath.Separator), "."), true
}

// Interpreter implements host.Resolver.
func (p Project) Interpreter(string) (interp.Interpreter, bool) {
	return p.Interp, p.Interp.ID != ""
}
