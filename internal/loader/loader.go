// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/lbctl/internal/lightbulb"
	"github.com/staranto/lbctl/internal/vfs"
)

// Code classifies the outcome of a load attempt.
type Code int

const (
	None Code = iota
	NotInstalled
	MissingDataFiles
	VersionParseFailed
	ReadFailed
	SchemaParseFailed
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case None:
		return "NONE"
	case NotInstalled:
		return "NOT_INSTALLED"
	case MissingDataFiles:
		return "MISSING_DATA_FILES"
	case VersionParseFailed:
		return "VERSION_PARSE_FAILED"
	case ReadFailed:
		return "READ_FAILED"
	case SchemaParseFailed:
		return "SCHEMA_PARSE_FAILED"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Expected reports whether c is a steady state rather than a malfunction.
func (c Code) Expected() bool {
	return c == NotInstalled || c == MissingDataFiles
}

// Result is what a load attempt produced. Data is set only when Code is None.
type Result struct {
	Code    Code
	Version string
	Data    *lightbulb.Data
	Err     error
}

// OK reports whether the load succeeded.
func (r Result) OK() bool {
	return r.Code == None
}

// versionPattern matches the version marker. The last match in a file wins.
var versionPattern = regexp.MustCompile(`__version__\s*=\s*"([^"]+)"`)

// ParseVersion extracts the last __version__ assignment from src.
func ParseVersion(src []byte) (string, bool) {
	matches := versionPattern.FindAllSubmatch(src, -1)
	if len(matches) == 0 {
		return "", false
	}
	return string(matches[len(matches)-1][1]), true
}

// ParseSchema decodes a metaparams.json document. Every value must be an
// object whose "required" and "optional" members, when present, map names
// to type-expression strings.
func ParseSchema(doc []byte) (map[string]lightbulb.ParamData, error) {
	if !gjson.ValidBytes(doc) {
		return nil, errors.New("schema is not valid JSON")
	}

	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, fmt.Errorf("schema root is %s, want object", root.Type)
	}

	params := make(map[string]lightbulb.ParamData)
	var perr error
	root.ForEach(func(key, value gjson.Result) bool {
		class := key.String()
		if !value.IsObject() {
			perr = fmt.Errorf("class %q: entry is %s, want object", class, value.Type)
			return false
		}

		required, err := stringMap(value.Get("required"))
		if err != nil {
			perr = fmt.Errorf("class %q: required: %w", class, err)
			return false
		}
		optional, err := stringMap(value.Get("optional"))
		if err != nil {
			perr = fmt.Errorf("class %q: optional: %w", class, err)
			return false
		}

		params[class] = lightbulb.NewParamData(required, optional)
		return true
	})
	if perr != nil {
		return nil, perr
	}

	return params, nil
}

// stringMap converts a JSON object of strings. A missing or null member is an
// empty map.
func stringMap(r gjson.Result) (map[string]string, error) {
	m := make(map[string]string)
	if !r.Exists() || r.Type == gjson.Null {
		return m, nil
	}
	if !r.IsObject() {
		return nil, fmt.Errorf("is %s, want object", r.Type)
	}

	var err error
	r.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			err = fmt.Errorf("parameter %q type is %s, want string", k.String(), v.Type)
			return false
		}
		m[k.String()] = v.String()
		return true
	})
	return m, err
}

// PeekVersion locates the package and reads only its version marker.
func PeekVersion(ctx context.Context, fsys vfs.FS, root string) Result {
	initPath, _, res := locate(ctx, fsys, root)
	if !res.OK() {
		return res
	}
	return readVersion(ctx, fsys, initPath)
}

// Load reads the schema of the library installed under root, a
// site-packages directory. It has no side effects beyond reading two files.
func Load(ctx context.Context, fsys vfs.FS, root string) Result {
	initPath, schemaPath, res := locate(ctx, fsys, root)
	if !res.OK() {
		return res
	}

	res = readVersion(ctx, fsys, initPath)
	if !res.OK() {
		return res
	}

	doc, err := fsys.ReadFile(ctx, schemaPath)
	if err != nil {
		return Result{Code: ReadFailed, Version: res.Version, Err: fmt.Errorf("failed to read %s: %w", schemaPath, err)}
	}

	params, err := ParseSchema(doc)
	if err != nil {
		return Result{Code: SchemaParseFailed, Version: res.Version, Err: fmt.Errorf("failed to parse %s: %w", schemaPath, err)}
	}

	log.Debugf("loaded %d command classes from %s (version=%s)", len(params), schemaPath, res.Version)
	return Result{Code: None, Version: res.Version, Data: lightbulb.New(res.Version, params)}
}

// locate finds the package directory and both resources.
func locate(ctx context.Context, fsys vfs.FS, root string) (initPath, schemaPath string, res Result) {
	pkg := vfs.Join(root, lightbulb.PackageDir)
	info, err := fsys.Stat(ctx, pkg)
	switch {
	case vfs.IsNotExist(err):
		log.Debugf("no %s package under %s", lightbulb.PackageDir, root)
		return "", "", Result{Code: NotInstalled}
	case err != nil:
		return "", "", Result{Code: ReadFailed, Err: fmt.Errorf("failed to stat %s: %w", pkg, err)}
	case !info.IsDir:
		return "", "", Result{Code: NotInstalled}
	}

	initPath = vfs.Join(pkg, lightbulb.VersionFile)
	schemaPath = vfs.Join(pkg, lightbulb.SchemaFile)
	for _, p := range []string{initPath, schemaPath} {
		if _, err := fsys.Stat(ctx, p); err != nil {
			if vfs.IsNotExist(err) {
				log.Debugf("missing data file %s", p)
				return "", "", Result{Code: MissingDataFiles}
			}
			return "", "", Result{Code: ReadFailed, Err: fmt.Errorf("failed to stat %s: %w", p, err)}
		}
	}

	return initPath, schemaPath, Result{Code: None}
}

func readVersion(ctx context.Context, fsys vfs.FS, initPath string) Result {
	src, err := fsys.ReadFile(ctx, initPath)
	if err != nil {
		return Result{Code: ReadFailed, Err: fmt.Errorf("failed to read %s: %w", initPath, err)}
	}
	version, ok := ParseVersion(src)
	if !ok {
		return Result{Code: VersionParseFailed, Err: fmt.Errorf("no __version__ in %s", initPath)}
	}
	return Result{Code: None, Version: version}
}
