// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"encoding/json"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/alekstar79/bit-corelib/common"
)

// fileRegistry is the local workspace's index of known components, tolerant
// of comments/trailing commas (tidwall/jsonc) since it's a hand-editable
// workspace config alongside the bitmap.
type fileRegistry struct {
	fs   afero.Fs
	path string

	Components map[string]registryEntry `json:"components"`
}

type registryEntry struct {
	ModelComponentRef string `json:"modelComponentRef"`
	VersionHistoryRef string `json:"versionHistoryRef"`
}

func openFileRegistry(fs afero.Fs, path string) (*fileRegistry, error) {
	r := &fileRegistry{fs: fs, path: path, Components: map[string]registryEntry{}}
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		if ok, _ := afero.Exists(fs, path); !ok {
			return r, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(jsonc.ToJSON(raw), r); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileRegistry) ModelComponentRef(id common.ComponentID) (common.Ref, bool) {
	e, ok := r.Components[id.WithoutVersion().Key()]
	if !ok || e.ModelComponentRef == "" {
		return "", false
	}
	return common.Ref(e.ModelComponentRef), true
}

func (r *fileRegistry) VersionHistoryRef(id common.ComponentID) (common.Ref, bool) {
	e, ok := r.Components[id.WithoutVersion().Key()]
	if !ok || e.VersionHistoryRef == "" {
		return "", false
	}
	return common.Ref(e.VersionHistoryRef), true
}
