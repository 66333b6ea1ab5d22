// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package workspace wires the object store, the per-component history cache
// and the workspace bitmap into the checkout.ModelLookup/FileLoader
// contracts, so the checkout engine never talks to storage directly.
package workspace

import (
	perrors "github.com/pkg/errors"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
	"github.com/alekstar79/bit/core/bitmap"
	"github.com/alekstar79/bit/core/history"
	"github.com/alekstar79/bit/core/record"
)

// ComponentRefResolver resolves a component's ModelComponent and
// VersionHistory refs — the registry of "known components" a workspace is
// attached to. The CLI layer supplies a concrete implementation (e.g. one
// backed by a local index file or a remote registry lookup).
type ComponentRefResolver interface {
	ModelComponentRef(id common.ComponentID) (common.Ref, bool)
	VersionHistoryRef(id common.ComponentID) (common.Ref, bool)
}

// Lookup implements checkout.ModelLookup and checkout.FileLoader.
type Lookup struct {
	store    *objstore.Store
	bm       *bitmap.Bitmap
	resolver ComponentRefResolver

	travCache map[string]*history.Traversal
}

// New builds a Lookup over store, bm and resolver.
func New(store *objstore.Store, bm *bitmap.Bitmap, resolver ComponentRefResolver) *Lookup {
	return &Lookup{store: store, bm: bm, resolver: resolver, travCache: map[string]*history.Traversal{}}
}

func (l *Lookup) Component(id common.ComponentID) (*record.ModelComponent, bool) {
	ref, ok := l.resolver.ModelComponentRef(id)
	if !ok {
		return nil, false
	}
	mc, err := record.LoadModelComponent(l.store, ref)
	if err != nil {
		return nil, false
	}
	return mc, true
}

func (l *Lookup) Traversal(id common.ComponentID) (*history.Traversal, bool) {
	key := id.WithoutVersion().Key()
	if t, ok := l.travCache[key]; ok {
		return t, true
	}
	ref, ok := l.resolver.VersionHistoryRef(id)
	if !ok {
		return nil, false
	}
	vh, err := record.LoadVersionHistory(l.store, ref)
	if err != nil {
		return nil, false
	}
	t := history.New(vh)
	l.travCache[key] = t
	return t, true
}

func (l *Lookup) Bitmap(id common.ComponentID) (currentHead, remoteHead common.Ref, tracked bool) {
	e, ok := l.bm.Version(id)
	if !ok {
		return "", "", false
	}
	mc, _ := l.Component(id)
	remote := common.Ref("")
	if mc != nil {
		remote = mc.Head
	}
	return e, remote, true
}

// IsModified compares the working-set FileTree recorded at the bitmap's
// current head against the actual on-disk content via diskHasher, injected
// so this package stays free of any real filesystem dependency.
var diskHasher func(id common.ComponentID, ft *record.FileTree) bool

// SetDiskHasher installs the filesystem comparison used by IsModified. Must
// be called once during CLI startup.
func SetDiskHasher(f func(id common.ComponentID, ft *record.FileTree) bool) { diskHasher = f }

func (l *Lookup) IsModified(id common.ComponentID) bool {
	head, _, ok := l.Bitmap(id)
	if !ok || head == "" {
		return false
	}
	v, err := record.LoadVersion(l.store, head)
	if err != nil {
		return false
	}
	ft, err := record.LoadFileTree(l.store, v.Files)
	if err != nil {
		return false
	}
	if diskHasher == nil {
		return false
	}
	return diskHasher(id, ft)
}

func (l *Lookup) Version(ref common.Ref) (*record.Version, error) {
	return record.LoadVersion(l.store, ref)
}

// LoadFiles implements checkout.FileLoader: loads each of base/current/
// target's FileTree as a path → content map, preserving per-file identity
// so the caller can run the three-way merge file by file instead of over
// one concatenated blob (§4.4's per-file decision table).
func (l *Lookup) LoadFiles(baseHead, currentHead, targetHead common.Ref) (base, current, target map[string][]byte, err error) {
	if base, err = l.loadTree(baseHead); err != nil {
		return nil, nil, nil, perrors.Wrap(err, "workspace: load base")
	}
	if current, err = l.loadTree(currentHead); err != nil {
		return nil, nil, nil, perrors.Wrap(err, "workspace: load current")
	}
	if target, err = l.loadTree(targetHead); err != nil {
		return nil, nil, nil, perrors.Wrap(err, "workspace: load target")
	}
	return base, current, target, nil
}

// loadTree resolves ref's working set into a path → content map. An empty
// ref (no base, or a brand-new component with no current checkout) yields
// an empty map rather than an error.
func (l *Lookup) loadTree(ref common.Ref) (map[string][]byte, error) {
	if ref == "" {
		return map[string][]byte{}, nil
	}
	v, err := record.LoadVersion(l.store, ref)
	if err != nil {
		return nil, err
	}
	ft, err := record.LoadFileTree(l.store, v.Files)
	if err != nil {
		return nil, err
	}
	return loadSources(l.store, ft)
}

func loadSources(store *objstore.Store, ft *record.FileTree) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ft.Files))
	for p, ref := range ft.Files {
		src, err := record.LoadSource(store, ref)
		if err != nil {
			return nil, perrors.Wrapf(err, "workspace: load source %s", p)
		}
		out[p] = src.Content
	}
	return out, nil
}
