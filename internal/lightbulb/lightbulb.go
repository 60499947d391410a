// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lightbulb

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	// PackageDir is the directory name of the installed library beneath a
	// site-packages root.
	PackageDir = "lightbulb"
	// DistName is the distribution name reported by the package manager.
	DistName = "hikari-lightbulb"
	// SchemaFile holds the per-class parameter schema.
	SchemaFile = "metaparams.json"
	// VersionFile holds the __version__ marker.
	VersionFile = "__init__.py"
	// SentinelVersion marks an interpreter that is known but has no usable
	// schema yet.
	SentinelVersion = "-1"
)

// ParamData is the metaclass parameter contract of one command superclass.
// The maps map a parameter name to its type expression, e.g. "str | None".
type ParamData struct {
	Required map[string]string `json:"required" yaml:"required"`
	Optional map[string]string `json:"optional" yaml:"optional"`
}

// NewParamData copies required and optional. A name listed in both maps is
// kept as required only.
func NewParamData(required, optional map[string]string) ParamData {
	p := ParamData{
		Required: make(map[string]string, len(required)),
		Optional: make(map[string]string, len(optional)),
	}
	for k, v := range required {
		p.Required[k] = v
	}
	for k, v := range optional {
		if _, dup := p.Required[k]; dup {
			continue
		}
		p.Optional[k] = v
	}
	return p
}

// RequiredNames returns the required parameter names, sorted.
func (p ParamData) RequiredNames() []string {
	return sortedKeys(p.Required)
}

// OptionalNames returns the optional parameter names, sorted.
func (p ParamData) OptionalNames() []string {
	return sortedKeys(p.Optional)
}

// Lookup returns the type expression for name and whether it is required.
func (p ParamData) Lookup(name string) (typ string, required bool, ok bool) {
	if t, ok := p.Required[name]; ok {
		return t, true, true
	}
	if t, ok := p.Optional[name]; ok {
		return t, false, true
	}
	return "", false, false
}

// Len returns the total number of parameters.
func (p ParamData) Len() int {
	return len(p.Required) + len(p.Optional)
}

// Data is a schema snapshot for one installed version of the library. It is
// immutable once constructed; maps reachable through its accessors must be
// treated as read-only.
type Data struct {
	version string
	params  map[string]ParamData
}

// New builds a Data snapshot, copying params.
func New(version string, params map[string]ParamData) *Data {
	d := &Data{
		version: version,
		params:  make(map[string]ParamData, len(params)),
	}
	for class, p := range params {
		d.params[class] = NewParamData(p.Required, p.Optional)
	}
	return d
}

// Sentinel returns the placeholder entry for an interpreter that has not
// produced a schema.
func Sentinel() *Data {
	return &Data{version: SentinelVersion, params: map[string]ParamData{}}
}

// Version returns the library version the schema was read from.
func (d *Data) Version() string {
	return d.version
}

// IsSentinel reports whether d is a placeholder entry.
func (d *Data) IsSentinel() bool {
	return d.version == SentinelVersion && len(d.params) == 0
}

// Empty reports whether d describes no command classes.
func (d *Data) Empty() bool {
	return len(d.params) == 0
}

// Classes returns the qualified class names in the schema, sorted.
func (d *Data) Classes() []string {
	return sortedKeys(d.params)
}

// Params returns the parameter contract for a schema key.
func (d *Data) Params(class string) (ParamData, bool) {
	p, ok := d.params[class]
	return p, ok
}

// Match maps a superclass's qualified name onto a schema key. An exact key
// wins. Otherwise a key sharing the root package and the final class name is
// accepted, which covers top-level re-exports such as lightbulb.SlashCommand.
func (d *Data) Match(qualified string) (string, bool) {
	if qualified == "" {
		return "", false
	}
	if _, ok := d.params[qualified]; ok {
		return qualified, true
	}

	root, leaf := splitQualified(qualified)
	if leaf == "" {
		return "", false
	}

	for _, key := range d.Classes() {
		kRoot, kLeaf := splitQualified(key)
		if kRoot == root && kLeaf == leaf {
			return key, true
		}
	}
	return "", false
}

// Document is the serialisable form of Data, matching the on-disk schema
// layout under a "paramData" key.
type Document struct {
	Version   string               `json:"version" yaml:"version"`
	ParamData map[string]ParamData `json:"paramData" yaml:"paramData"`
}

// Document returns a copy of d in serialisable form.
func (d *Data) Document() Document {
	doc := Document{Version: d.version, ParamData: make(map[string]ParamData, len(d.params))}
	for class, p := range d.params {
		doc.ParamData[class] = NewParamData(p.Required, p.Optional)
	}
	return doc
}

// MarshalJSON implements json.Marshaler.
func (d *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Document())
}

func splitQualified(name string) (root, leaf string) {
	first := strings.Index(name, ".")
	last := strings.LastIndex(name, ".")
	if first < 0 {
		return name, ""
	}
	return name[:first], name[last+1:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
