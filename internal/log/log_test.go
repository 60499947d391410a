// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &CustomHandler{Writer: &buf}

	e := &log.Entry{
		Level:     log.WarnLevel,
		Message:   "refresh failed",
		Timestamp: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		Fields:    log.Fields{"interpreter": "venv", "error": errors.New("boom")},
	}
	require.NoError(t, h.HandleLog(e))
	assert.Equal(t, "2025-03-01 12:30:00 W refresh failed error=boom interpreter=venv\n", buf.String())
}

func TestInitLogger(t *testing.T) {
	t.Setenv("LBCTL_LOG", "debug")
	InitLogger()
	assert.Equal(t, log.DebugLevel, log.Log.(*log.Logger).Level)

	t.Setenv("LBCTL_LOG", "WARN")
	InitLogger()
	assert.Equal(t, log.WarnLevel, log.Log.(*log.Logger).Level)

	t.Setenv("LBCTL_LOG", "bogus")
	InitLogger()
	assert.Equal(t, log.ErrorLevel, log.Log.(*log.Logger).Level)
}
