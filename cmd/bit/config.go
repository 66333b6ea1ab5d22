// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// bitConfigFile is the optional `.bitconfig.yaml` alternate workspace config
// format (§9 supplemented feature), checked for before falling back to the
// --workspace flag's default.
type bitConfigFile struct {
	Workspace string `yaml:"workspace,omitempty"`
}

// loadBitConfig reads .bitconfig.yaml from the current directory, if
// present, and returns the workspace directory override it names.
func loadBitConfig(fs afero.Fs) (string, bool) {
	raw, err := afero.ReadFile(fs, ".bitconfig.yaml")
	if err != nil {
		return "", false
	}
	var cfg bitConfigFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil || cfg.Workspace == "" {
		return "", false
	}
	return cfg.Workspace, true
}
