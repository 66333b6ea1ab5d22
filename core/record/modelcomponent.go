// Copyright 2024 The Bit Authors
// This file is part of bit.

package record

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
)

// ModelComponent is the per-component head pointer and tag map (§3): the
// entry point into a component's history.
type ModelComponent struct {
	Scope string                `json:"scope"`
	Name  string                `json:"name"`
	Head  common.Ref            `json:"head"`
	Tags  map[string]common.Ref `json:"tags,omitempty"`
}

func (ModelComponent) Kind() objstore.Kind { return objstore.KindModelComponent }

// LoadModelComponent fetches and validates a ModelComponent by Ref.
func LoadModelComponent(store *objstore.Store, ref common.Ref) (*ModelComponent, error) {
	var mc ModelComponent
	if err := loadInto(store, ref, objstore.KindModelComponent, &mc); err != nil {
		return nil, err
	}
	return &mc, nil
}

// HeadIncludeRemote prefers the local head; if it is empty, falls back to
// the latest known remote head.
func (mc *ModelComponent) HeadIncludeRemote(remoteHead common.Ref) common.Ref {
	if mc.Head != "" {
		return mc.Head
	}
	return remoteHead
}

// LatestVersionIfExist returns the tag with the greatest semver value, if
// any tag is a valid semver string. Non-semver tag names are ignored.
func (mc *ModelComponent) LatestVersionIfExist() (tag string, ref common.Ref, ok bool) {
	type entry struct {
		tag string
		ver *semver.Version
		ref common.Ref
	}
	var entries []entry
	for t, r := range mc.Tags {
		v, err := semver.NewVersion(t)
		if err != nil {
			continue
		}
		entries = append(entries, entry{tag: t, ver: v, ref: r})
	}
	if len(entries) == 0 {
		return "", "", false
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ver.LessThan(entries[j].ver) })
	best := entries[len(entries)-1]
	return best.tag, best.ref, true
}
