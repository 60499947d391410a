// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package loadertest writes site-packages fixtures for tests.
package loadertest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CommandSchema is a minimal metaparams.json with one command class.
const CommandSchema = `{"pkg.Command": {"required": {"name": "str"}, "optional": {}}}`

// WriteSite lays out root/lightbulb with an __init__.py declaring version and
// a metaparams.json holding schema. An empty schema skips metaparams.json.
func WriteSite(t *testing.T, root, version, schema string) string {
	t.Helper()

	pkg := filepath.Join(root, "lightbulb")
	require.NoError(t, os.MkdirAll(pkg, 0o755))

	init := fmt.Sprintf("from lightbulb.client import *\n\n__version__ = %q\n", version)
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "__init__.py"), []byte(init), 0o600))

	if schema != "" {
		require.NoError(t, os.WriteFile(filepath.Join(pkg, "metaparams.json"), []byte(schema), 0o600))
	}
	return pkg
}

// WriteDistInfo creates the dist-info directory the package manager leaves
// behind for name==version.
func WriteDistInfo(t *testing.T, root, name, version string) string {
	t.Helper()

	dir := filepath.Join(root, fmt.Sprintf("%s-%s.dist-info", name, version))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	meta := fmt.Sprintf("Metadata-Version: 2.1\nName: %s\nVersion: %s\nSummary: test\n\nlong description\n", name, version)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "METADATA"), []byte(meta), 0o600))
	return dir
}
