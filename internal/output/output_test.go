// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortDataset(t *testing.T) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0, "kind": "Slash"},
		{"name": "alpha", "count": 1.0, "kind": "user"},
		{"name": "Beta", "count": 2.0, "kind": "message"},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{name: "ascending by name", spec: "name", wantOrder: []string{"alpha", "Beta", "zebra"}},
		{name: "descending by name", spec: "-name", wantOrder: []string{"zebra", "Beta", "alpha"}},
		{name: "ascending by count", spec: "count", wantOrder: []string{"alpha", "Beta", "zebra"}},
		{name: "descending by count", spec: "-count", wantOrder: []string{"zebra", "Beta", "alpha"}},
		{name: "case sensitive", spec: "!name", wantOrder: []string{"Beta", "alpha", "zebra"}},
		{name: "multiple fields", spec: "kind,name", wantOrder: []string{"Beta", "zebra", "alpha"}},
		{name: "empty spec", spec: "", wantOrder: []string{"zebra", "alpha", "Beta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]interface{}, len(testData))
			copy(data, testData)
			SortDataset(data, tt.spec)
			for i, expectedName := range tt.wantOrder {
				assert.Equal(t, expectedName, data[i]["name"], "at index %d", i)
			}
		})
	}
}

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		spec string
		want []Filter
	}{
		{"", nil},
		{"name=foo", []Filter{{Key: "name", Operand: "=", Target: "foo"}}},
		{"name!=foo", []Filter{{Key: "name", Negate: true, Operand: "=", Target: "foo"}}},
		{"type/^bool", []Filter{{Key: "type", Operand: "/", Target: "^bool"}}},
		{"a^x,b@y", []Filter{
			{Key: "a", Operand: "^", Target: "x"},
			{Key: "b", Operand: "@", Target: "y"},
		}},
		{"nooperand", nil},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilters(tt.spec))
		})
	}
}

func TestBuildFilters_Delimiter(t *testing.T) {
	t.Setenv("LBCTL_FILTER_DELIM", ";")
	got := BuildFilters("type=str | None;name^dm")
	require.Len(t, got, 2)
	assert.Equal(t, "str | None", got[0].Target)
}

func TestFilterDataset(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "description", "type": "str", "required": true, "tags": []string{"a"}},
		{"name": "nsfw", "type": "bool", "required": false, "tags": []string{"b"}},
		{"name": "dm_enabled", "type": "bool | None", "required": false, "tags": nil},
	}

	tests := []struct {
		spec string
		want []string
	}{
		{"", []string{"description", "nsfw", "dm_enabled"}},
		{"type=bool", []string{"nsfw"}},
		{"type^bool", []string{"nsfw", "dm_enabled"}},
		{"type!^bool", []string{"description"}},
		{"required=true", []string{"description"}},
		{"name~NSFW", []string{"nsfw"}},
		{"name/_", []string{"dm_enabled"}},
		{"tags@b", []string{"nsfw"}},
		{"type@None,name^dm", []string{"dm_enabled"}},
		{"missing=x", []string{"description", "nsfw", "dm_enabled"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			var got []string
			for _, r := range FilterDataset(rows, tt.spec) {
				got = append(got, r["name"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpit(t *testing.T) {
	ds := Dataset{
		Columns: []string{"name", "type"},
		Rows: []map[string]interface{}{
			{"name": "nsfw", "type": "bool"},
			{"name": "description", "type": "str"},
		},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Spit(ds, Options{Format: "json", Sort: "name"}, &buf))
		assert.JSONEq(t, `[{"name":"description","type":"str"},{"name":"nsfw","type":"bool"}]`, buf.String())
	})

	t.Run("json empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Spit(Dataset{}, Options{Format: "json"}, &buf))
		assert.Equal(t, "[]\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Spit(ds, Options{Format: "yaml", Filter: "name=nsfw"}, &buf))
		assert.Equal(t, "- name: nsfw\n  type: bool\n", buf.String())
	})

	t.Run("raw", func(t *testing.T) {
		var buf bytes.Buffer
		raw := Dataset{Raw: []byte(`{"x":1}`)}
		require.NoError(t, Spit(raw, Options{Format: "raw"}, &buf))
		assert.Equal(t, `{"x":1}`, buf.String())
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Spit(ds, Options{Format: "text", Titles: true}, &buf))
		out := buf.String()
		assert.Contains(t, out, "name")
		assert.Contains(t, out, "description")
		assert.Less(t, strings.Index(out, "nsfw"), strings.Index(out, "description"))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, Spit(ds, Options{Format: "xml"}, &bytes.Buffer{}))
	})
}

func TestSpit_LeavesRowsInPlace(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "nsfw"},
		{"name": "description"},
	}
	ds := Dataset{Columns: []string{"name"}, Rows: rows}

	for _, format := range []string{"json", "yaml", "text"} {
		var buf bytes.Buffer
		require.NoError(t, Spit(ds, Options{Format: format, Sort: "name"}, &buf))
		assert.Equal(t, "nsfw", ds.Rows[0]["name"], format)
		assert.Equal(t, "description", ds.Rows[1]["name"], format)
	}
}

func TestRelativeTime(t *testing.T) {
	past := time.Now().Add(-3 * time.Hour)
	assert.Equal(t, "3 hours ago", relativeTime(past))
	assert.Equal(t, "3 hours ago", relativeTime(past.UTC().Format(time.RFC3339)))
	assert.Nil(t, relativeTime(time.Time{}))
	assert.Equal(t, "plain", relativeTime("plain"))
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "float64", value: 42.5, want: "42"},
		{name: "float64 with decimal", value: 42.7, want: "43"},
		{name: "bool true", value: true, want: "true"},
		{name: "bool false is zero value", value: false, want: ""},
		{name: "nil default", value: nil, want: ""},
		{name: "nil custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero value int", value: 0, want: ""},
		{name: "stringer", value: time.Second, want: "1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetColors(t *testing.T) {
	header, even, odd := getColors("colors")
	assert.NotEmpty(t, header)
	assert.NotEmpty(t, even)
	assert.NotEmpty(t, odd)
}

func TestDumpExamples(t *testing.T) {
	var buf bytes.Buffer
	DumpExamples(&buf, [][2]string{{"lbctl show venv", "Show the schema"}})
	assert.Contains(t, buf.String(), "lbctl show venv")

	buf.Reset()
	DumpExamples(&buf, nil)
	assert.Empty(t, buf.String())
}

func BenchmarkSortDataset(b *testing.B) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0},
		{"name": "alpha", "count": 1.0},
		{"name": "beta", "count": 2.0},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data := make([]map[string]interface{}, len(testData))
		copy(data, testData)
		SortDataset(data, "name")
	}
}
