// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package environment contains the types and methods for fetching configuration from the local environment.
package environment

import "os"

const (
	fetchDefaultBaseDir    = ".aumlib"            // fetchDefaultBaseDir is the default base directory for downloaded configuration documents.
	fetchDefaultBaseDirEnv = "AUMLIB_DIR"         // fetchDefaultBaseDirEnv is the environment variable to override the default base directory.
	logLevelEnv            = "AUMLIB_LOG_LEVEL"   // logLevelEnv is the environment variable that sets the log level.
	logNoColorEnv          = "AUMLIB_LOG_NOCOLOR" // logNoColorEnv disables colored console logs when set to a true value.
)

// AumLibDir contents of the `AUMLIB_DIR` environment variable, or the default which is `.aumlib`.
func AumLibDir() string {
	dir := fetchDefaultBaseDir
	if d := os.Getenv(fetchDefaultBaseDirEnv); d != "" {
		dir = d
	}
	return dir
}

// LogLevel contents of the `AUMLIB_LOG_LEVEL` environment variable, empty if unset.
func LogLevel() string {
	return os.Getenv(logLevelEnv)
}

// LogNoColor contents of the `AUMLIB_LOG_NOCOLOR` environment variable, empty if unset.
func LogNoColor() string {
	return os.Getenv(logNoColorEnv)
}
