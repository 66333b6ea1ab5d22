// Copyright 2024 The Bit Authors
// This file is part of bit.

package record

import (
	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
)

// VersionParents is one entry of a VersionHistory's denormalized DAG cache
// (§3): a hash plus its parent/unrelated/squashed edges.
type VersionParents struct {
	Hash      common.Ref   `json:"hash"`
	Parents   []common.Ref `json:"parents"`
	Unrelated *common.Ref  `json:"unrelated,omitempty"`
	Squashed  []common.Ref `json:"squashed,omitempty"`
}

// VersionHistory is the per-component DAG cache (§3). Invariants: no two
// entries share a Hash; every Parent/Unrelated/Squashed ref either appears
// as another entry's Hash or is reported missing by traversal.
type VersionHistory struct {
	Scope             string           `json:"scope"`
	Name              string           `json:"name"`
	Versions          []VersionParents `json:"versions"`
	GraphCompleteRefs []common.Ref     `json:"graphCompleteRefs,omitempty"`
}

func (VersionHistory) Kind() objstore.Kind { return objstore.KindVersionHistory }

// LoadVersionHistory fetches and validates a VersionHistory by Ref.
func LoadVersionHistory(store *objstore.Store, ref common.Ref) (*VersionHistory, error) {
	var vh VersionHistory
	if err := loadInto(store, ref, objstore.KindVersionHistory, &vh); err != nil {
		return nil, err
	}
	return &vh, nil
}

// ByHash returns the entry with the given hash, if present.
func (vh *VersionHistory) ByHash(h common.Ref) (VersionParents, bool) {
	for _, v := range vh.Versions {
		if v.Hash == h {
			return v, true
		}
	}
	return VersionParents{}, false
}

// MarkGraphCompleteFrom memoizes that every transitive parent of ref is
// present locally (§4.2 isGraphCompleteSince). The caller persists the
// updated record — this method only mutates the in-memory copy, matching
// the "cache record is marked dirty" language of the spec.
func (vh *VersionHistory) MarkGraphCompleteFrom(ref common.Ref) {
	for _, r := range vh.GraphCompleteRefs {
		if r == ref {
			return
		}
	}
	vh.GraphCompleteRefs = append(vh.GraphCompleteRefs, ref)
}

// IsMarkedGraphCompleteFrom reports a previous memoized complete mark
// without re-walking (§8 "History closure under complete mark").
func (vh *VersionHistory) IsMarkedGraphCompleteFrom(ref common.Ref) bool {
	for _, r := range vh.GraphCompleteRefs {
		if r == ref {
			return true
		}
	}
	return false
}
