// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package xdg locates roster files under the XDG Base Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "roster"
	configFileName = "config.yaml"
)

// ConfigDir returns the roster config directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path. The file may not exist.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), configFileName)
}

// ExistingConfigFile returns ConfigFile when it exists and "" when it does not.
func ExistingConfigFile() (string, error) {
	path := ConfigFile()
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	case info.IsDir():
		return "", oops.Code("CONFIG_INVALID").With("path", path).Errorf("config path is a directory")
	}
	return path, nil
}
