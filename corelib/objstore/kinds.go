// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.

package objstore

// SchemaVersion tracks the on-disk envelope format.
//
// 1.0 - initial: {kind, payload} envelope, sha1 of the envelope bytes is the Ref.
var SchemaVersion = struct{ Major, Minor int }{Major: 1, Minor: 0}

// Kind tags which concrete record a stored envelope carries. The object
// store itself never interprets Payload — callers in core/record own the
// concrete Go types and (de)serialize Payload themselves.
type Kind string

const (
	// KindVersion - one point in a component's history.
	// key - sha1(envelope) -> {parents, unrelated?, squashed?, files, ext, removed}
	KindVersion Kind = "version"

	// KindModelComponent - per-component head pointer and tag map.
	// key - sha1(envelope) -> {scope, name, head, tags}
	// Note: unlike the other kinds, callers also track ModelComponent by
	// (scope,name) identity outside the store, through a registry that maps
	// each component to its current ModelComponent ref (workspace.ComponentRefResolver).
	KindModelComponent Kind = "model-component"

	// KindLane - named, mutable ref set. Mutable in memory; each save is a
	// fresh envelope under a stable lane hash assigned at creation time.
	KindLane Kind = "lane"

	// KindVersionHistory - denormalized per-component DAG cache.
	// key - sha1(envelope) -> {versions:[{hash,parents,unrelated?,squashed?}], graphCompleteRefs?}
	KindVersionHistory Kind = "version-history"

	// KindFileTree - path -> blob Ref mapping for one Version's working set.
	KindFileTree Kind = "file-tree"

	// KindSource - a single file's raw content, addressed by its own hash.
	KindSource Kind = "source"
)
