// Copyright 2024 The Bit Authors
// This file is part of bit.

package workspace

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
	"github.com/alekstar79/bit/core/bitmap"
	"github.com/alekstar79/bit/core/record"
)

type fakeResolver struct {
	mc map[string]common.Ref
	vh map[string]common.Ref
}

func (r *fakeResolver) ModelComponentRef(id common.ComponentID) (common.Ref, bool) {
	ref, ok := r.mc[id.WithoutVersion().Key()]
	return ref, ok
}

func (r *fakeResolver) VersionHistoryRef(id common.ComponentID) (common.Ref, bool) {
	ref, ok := r.vh[id.WithoutVersion().Key()]
	return ref, ok
}

func newTestLookup(t *testing.T) (*Lookup, *objstore.Store, *fakeResolver, *bitmap.Bitmap) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := objstore.New(fs, "/objects")
	require.NoError(t, err)
	bm, err := bitmap.Open(fs, t.TempDir()+"/bitmap.json")
	require.NoError(t, err)
	resolver := &fakeResolver{mc: map[string]common.Ref{}, vh: map[string]common.Ref{}}
	return New(store, bm, resolver), store, resolver, bm
}

var compA = common.ComponentID{Scope: "s", Name: "a"}

func TestComponentMissingResolverEntry(t *testing.T) {
	lk, _, _, _ := newTestLookup(t)
	_, ok := lk.Component(compA)
	require.False(t, ok)
}

func TestComponentLoadsThroughResolver(t *testing.T) {
	lk, store, resolver, _ := newTestLookup(t)
	mc := &record.ModelComponent{Scope: "s", Name: "a", Head: "1111111111111111111111111111111111111111"}
	ref, err := record.Save(store, mc)
	require.NoError(t, err)
	resolver.mc[compA.WithoutVersion().Key()] = ref

	loaded, ok := lk.Component(compA)
	require.True(t, ok)
	require.Equal(t, mc.Head, loaded.Head)
}

func TestTraversalIsCached(t *testing.T) {
	lk, store, resolver, _ := newTestLookup(t)
	vh := &record.VersionHistory{Scope: "s", Name: "a", Versions: []record.VersionParents{{Hash: "1111111111111111111111111111111111111111"}}}
	ref, err := record.Save(store, vh)
	require.NoError(t, err)
	resolver.vh[compA.WithoutVersion().Key()] = ref

	t1, ok := lk.Traversal(compA)
	require.True(t, ok)
	t2, ok := lk.Traversal(compA)
	require.True(t, ok)
	require.Same(t, t1, t2)
}

func TestBitmapReportsTrackedAndRemoteHead(t *testing.T) {
	lk, store, resolver, bm := newTestLookup(t)
	mc := &record.ModelComponent{Scope: "s", Name: "a", Head: "2222222222222222222222222222222222222222"}
	ref, err := record.Save(store, mc)
	require.NoError(t, err)
	resolver.mc[compA.WithoutVersion().Key()] = ref
	bm.Set(bitmap.Entry{ID: compA, Version: "1111111111111111111111111111111111111111"})

	current, remote, tracked := lk.Bitmap(compA)
	require.True(t, tracked)
	require.Equal(t, common.Ref("1111111111111111111111111111111111111111"), current)
	require.Equal(t, common.Ref("2222222222222222222222222222222222222222"), remote)
}

func TestBitmapUntrackedComponent(t *testing.T) {
	lk, _, _, _ := newTestLookup(t)
	_, _, tracked := lk.Bitmap(compA)
	require.False(t, tracked)
}

func TestLoadFilesKeepsPerFileIdentity(t *testing.T) {
	lk, store, _, _ := newTestLookup(t)

	srcB, err := record.Save(store, &record.Source{Content: []byte("B")})
	require.NoError(t, err)
	srcA, err := record.Save(store, &record.Source{Content: []byte("A")})
	require.NoError(t, err)

	ft := &record.FileTree{Files: map[string]common.Ref{"z.txt": srcB, "a.txt": srcA}}
	ftRef, err := record.Save(store, ft)
	require.NoError(t, err)

	v := &record.Version{Files: ftRef}
	vRef, err := record.Save(store, v)
	require.NoError(t, err)

	base, current, target, err := lk.LoadFiles("", vRef, vRef)
	require.NoError(t, err)
	require.Empty(t, base)
	require.Equal(t, map[string][]byte{"z.txt": []byte("B"), "a.txt": []byte("A")}, current)
	require.Equal(t, map[string][]byte{"z.txt": []byte("B"), "a.txt": []byte("A")}, target)
}

func TestIsModifiedUsesInjectedDiskHasher(t *testing.T) {
	lk, store, _, bm := newTestLookup(t)

	src, err := record.Save(store, &record.Source{Content: []byte("content")})
	require.NoError(t, err)
	ft := &record.FileTree{Files: map[string]common.Ref{"f.txt": src}}
	ftRef, err := record.Save(store, ft)
	require.NoError(t, err)
	v := &record.Version{Files: ftRef}
	vRef, err := record.Save(store, v)
	require.NoError(t, err)
	bm.Set(bitmap.Entry{ID: compA, Version: vRef})

	SetDiskHasher(func(id common.ComponentID, ft *record.FileTree) bool { return true })
	t.Cleanup(func() { SetDiskHasher(nil) })

	require.True(t, lk.IsModified(compA))
}
