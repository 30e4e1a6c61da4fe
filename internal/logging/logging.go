// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package logging configures the zerolog logger used by the command line tool.
package logging

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/aumlib/internal/environment"
	"github.com/rs/zerolog"
)

// New returns a console logger writing to w.
// The level comes from `AUMLIB_LOG_LEVEL` and defaults to info, verbose forces debug.
func New(w io.Writer, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    noColor(),
	}

	return zerolog.New(output).Level(Level(verbose)).With().Timestamp().Str("app", "aumtool").Logger()
}

// Level resolves the effective log level.
func Level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(environment.LogLevel()))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return lvl
}

func noColor() bool {
	b, _ := strconv.ParseBool(environment.LogNoColor())
	return b
}
