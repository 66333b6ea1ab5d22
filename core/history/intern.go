// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package history walks the parent/squashed/unrelated edges of a
// VersionHistory DAG to answer contains, diverge, merge-pending and
// reachable-from queries (§4.2).
package history

import (
	"github.com/google/btree"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/record"
)

// btreeEntry indexes a VersionHistory entry by hash for O(log n) lookup
// (Traversal.lookup). The LCA tie-break does not iterate this index; pickLCA
// sorts its candidates itself.
type btreeEntry struct {
	hash string
	vp   record.VersionParents
}

func (e btreeEntry) Less(than btree.Item) bool {
	return e.hash < than.(btreeEntry).hash
}

// idTable interns Refs into small integers so membership sets can be kept
// as compressed roaring bitmaps instead of string-keyed maps.
type idTable struct {
	toID  map[common.Ref]uint32
	toRef []common.Ref
}

func newIDTable() *idTable {
	return &idTable{toID: make(map[common.Ref]uint32)}
}

func (t *idTable) id(ref common.Ref) uint32 {
	if id, ok := t.toID[ref]; ok {
		return id
	}
	id := uint32(len(t.toRef))
	t.toID[ref] = id
	t.toRef = append(t.toRef, ref)
	return id
}

func (t *idTable) ref(id uint32) common.Ref {
	if int(id) >= len(t.toRef) {
		return common.EmptyRef
	}
	return t.toRef[id]
}
