// Copyright 2024 The Bit Authors
// This file is part of bit.

package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
	"github.com/alekstar79/bit/core/record"
)

// rawBytesFor produces canonically-encoded, correctly-hashed bytes for a
// KindSource record so a fakeFetcher can hand them back as if fetched from a
// remote peer's store.
func rawBytesFor(t *testing.T, payload string) (common.Ref, []byte) {
	t.Helper()
	srcFs := afero.NewMemMapFs()
	src, err := objstore.New(srcFs, "/src")
	require.NoError(t, err)
	ref, err := src.Put(objstore.KindSource, record.Source{Content: []byte(payload)})
	require.NoError(t, err)
	raw, err := afero.ReadFile(srcFs, "/src/"+string(ref)[:2]+"/"+string(ref))
	require.NoError(t, err)
	return ref, raw
}

type fakeFetcher struct {
	objects map[common.Ref][]byte
	fails   int
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, refs []common.Ref) (map[common.Ref][]byte, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("transient fetch failure")
	}
	out := map[common.Ref][]byte{}
	for _, r := range refs {
		if b, ok := f.objects[r]; ok {
			out[r] = b
		}
	}
	return out, nil
}

func TestImportMissingSkipsObjectsAlreadyPresent(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := objstore.New(fs, "/objects")
	require.NoError(t, err)

	ref, err := store.Put(objstore.KindSource, record.Source{Content: []byte("already have this")})
	require.NoError(t, err)

	imp := New(store, &fakeFetcher{}, nil)
	rep, errs := imp.ImportMissing(context.Background(), []common.Ref{ref}, nil)
	require.Empty(t, errs)
	require.Equal(t, 0, rep.Imported)
}

func TestImportMissingFetchesAbsentObjects(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := objstore.New(fs, "/objects")
	require.NoError(t, err)

	ref, raw := rawBytesFor(t, "remote content")
	fetcher := &fakeFetcher{objects: map[common.Ref][]byte{ref: raw}}

	imp := New(store, fetcher, nil)
	rep, errs := imp.ImportMissing(context.Background(), []common.Ref{ref}, nil)
	require.Empty(t, errs)
	require.Equal(t, 1, rep.Imported)
	require.True(t, store.Has(ref))
}

func TestImportMissingRetriesTransientFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := objstore.New(fs, "/objects")
	require.NoError(t, err)

	ref, raw := rawBytesFor(t, "flaky content")
	fetcher := &fakeFetcher{objects: map[common.Ref][]byte{ref: raw}, fails: 2}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(0), 5)
	imp := New(store, fetcher, nil)
	rep, errs := imp.ImportMissing(context.Background(), []common.Ref{ref}, policy)
	require.Empty(t, errs)
	require.Equal(t, 1, rep.Imported)
	require.Equal(t, 3, fetcher.calls)
}

func TestSyncNewComponentsDelegatesToImportMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := objstore.New(fs, "/objects")
	require.NoError(t, err)

	ref, raw := rawBytesFor(t, "new component head")
	fetcher := &fakeFetcher{objects: map[common.Ref][]byte{ref: raw}}

	imp := New(store, fetcher, nil)
	rep, errs := imp.SyncNewComponents(context.Background(), []common.Ref{ref})
	require.Empty(t, errs)
	require.Equal(t, 1, rep.Imported)
}
