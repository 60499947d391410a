// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package schemadiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/lbctl/internal/lightbulb"
)

func data(version string, classes map[string]lightbulb.ParamData) *lightbulb.Data {
	return lightbulb.New(version, classes)
}

func TestCompare(t *testing.T) {
	from := data("2.0.0", map[string]lightbulb.ParamData{
		"pkg.Slash": lightbulb.NewParamData(map[string]string{"name": "str"}, map[string]string{"nsfw": "bool"}),
		"pkg.User":  lightbulb.NewParamData(map[string]string{"name": "str"}, nil),
		"pkg.Old":   lightbulb.NewParamData(nil, nil),
	})
	to := data("2.1.0", map[string]lightbulb.ParamData{
		"pkg.Slash":   lightbulb.NewParamData(map[string]string{"name": "str"}, map[string]string{"nsfw": "bool | None"}),
		"pkg.User":    lightbulb.NewParamData(map[string]string{"name": "str"}, nil),
		"pkg.Message": lightbulb.NewParamData(map[string]string{"name": "str"}, nil),
	})

	d, err := Compare(from, to)
	require.NoError(t, err)
	assert.True(t, d.Modified())
	assert.Equal(t, []string{"pkg.Message"}, d.Added)
	assert.Equal(t, []string{"pkg.Old"}, d.Removed)
	assert.Equal(t, []string{"pkg.Slash"}, d.Changed)
	assert.Equal(t, "2.0.0 -> 2.1.0: 1 added, 1 removed, 1 changed", d.String())

	out, err := d.Format(false)
	require.NoError(t, err)
	assert.Contains(t, out, "pkg.Message")
	assert.Contains(t, out, "bool | None")
}

func TestCompare_Identical(t *testing.T) {
	classes := map[string]lightbulb.ParamData{
		"pkg.Command": lightbulb.NewParamData(map[string]string{"name": "str"}, nil),
	}
	d, err := Compare(data("1.0.0", classes), data("1.0.1", classes))
	require.NoError(t, err)
	assert.False(t, d.Modified())
	assert.True(t, d.Empty())

	out, err := d.Format(false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCompare_NilSides(t *testing.T) {
	to := data("1.0.0", map[string]lightbulb.ParamData{"pkg.C": {}})
	d, err := Compare(nil, to)
	require.NoError(t, err)
	assert.Equal(t, lightbulb.SentinelVersion, d.FromVersion)
	assert.Equal(t, []string{"pkg.C"}, d.Added)
}

func TestDescribe(t *testing.T) {
	from := lightbulb.NewParamData(map[string]string{"name": "str", "gone": "int"}, map[string]string{"nsfw": "bool"})
	to := lightbulb.NewParamData(map[string]string{"name": "str"}, map[string]string{"nsfw": "bool | None", "new": "str"})

	assert.Equal(t, []string{
		"- gone: int (required)",
		"+ new: str",
		"~ nsfw: bool -> bool | None",
	}, Describe(from, to))
}
