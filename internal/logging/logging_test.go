// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	t.Setenv("AUMLIB_LOG_LEVEL", "")
	assert.Equal(t, zerolog.InfoLevel, Level(false))
	assert.Equal(t, zerolog.DebugLevel, Level(true))

	t.Setenv("AUMLIB_LOG_LEVEL", "WARN")
	assert.Equal(t, zerolog.WarnLevel, Level(false))
	assert.Equal(t, zerolog.DebugLevel, Level(true))

	t.Setenv("AUMLIB_LOG_LEVEL", "chatty")
	assert.Equal(t, zerolog.InfoLevel, Level(false))
}

func TestNew(t *testing.T) {
	t.Setenv("AUMLIB_LOG_LEVEL", "info")
	t.Setenv("AUMLIB_LOG_NOCOLOR", "true")

	buf := new(bytes.Buffer)
	log := New(buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("schedule", "Patch-Win-Sat").Msg("created maintenance configuration")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "created maintenance configuration")
	assert.Contains(t, out, "schedule=Patch-Win-Sat")
}
