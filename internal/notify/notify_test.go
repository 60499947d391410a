// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "done", Format("done"))
	assert.Equal(t, "loaded (venv)", Format("loaded (%s)", "venv"))
	assert.Equal(t, "loaded (py%d)", Format("loaded (%s)", "py%d"))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(Info, "Lightbulb configuration loaded successfully (%s)", "venv")
	r.Notify(Warning, "bad")

	notes := r.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "Lightbulb configuration loaded successfully (venv)", notes[0].Message)
	assert.Equal(t, 1, r.Count(Warning))
	assert.Equal(t, 0, r.Count(Error))

	r.Reset()
	assert.Empty(t, r.Notes())
}

func TestMulti(t *testing.T) {
	var a, b Recorder
	var got []string
	m := Multi{&a, nil, &b, Func(func(sev Severity, msg string) {
		got = append(got, sev.String()+":"+msg)
	})}

	m.Notify(Error, "x=%d", 1)
	assert.Len(t, a.Notes(), 1)
	assert.Len(t, b.Notes(), 1)
	assert.Equal(t, []string{"error:x=1"}, got)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "unknown", Severity(9).String())
}
