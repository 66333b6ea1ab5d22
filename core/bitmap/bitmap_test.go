// Copyright 2024 The Bit Authors
// This file is part of bit.

package bitmap

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alekstar79/bit-corelib/common"
)

func bitmapPath(t *testing.T) string {
	t.Helper()
	// flock always locks against the real OS filesystem regardless of the
	// afero.Fs passed to Open, so the lock file needs a real, writable path.
	return t.TempDir() + "/bitmap.json"
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := bitmapPath(t)
	b, err := Open(fs, path)
	require.NoError(t, err)
	require.Empty(t, b.All())
	require.Equal(t, "", b.ActiveLane())
}

func TestSetAndVersionRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := Open(fs, bitmapPath(t))
	require.NoError(t, err)

	id := common.ComponentID{Scope: "s", Name: "a"}
	b.Set(Entry{ID: id, Version: "1111111111111111111111111111111111111111"})

	ref, ok := b.Version(id)
	require.True(t, ok)
	require.Equal(t, common.Ref("1111111111111111111111111111111111111111"), ref)
}

func TestSaveThenReopenPersists(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := bitmapPath(t)
	b, err := Open(fs, path)
	require.NoError(t, err)

	id := common.ComponentID{Scope: "s", Name: "a"}
	b.Set(Entry{ID: id, Version: "1111111111111111111111111111111111111111"})
	b.SetActiveLane("feature-x")
	require.NoError(t, b.Save())

	reopened, err := Open(fs, path)
	require.NoError(t, err)
	require.Equal(t, "feature-x", reopened.ActiveLane())
	ref, ok := reopened.Version(id)
	require.True(t, ok)
	require.Equal(t, common.Ref("1111111111111111111111111111111111111111"), ref)
}

func TestRemoveDropsEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := Open(fs, bitmapPath(t))
	require.NoError(t, err)

	id := common.ComponentID{Scope: "s", Name: "a"}
	b.Set(Entry{ID: id, Version: "1111111111111111111111111111111111111111"})
	b.Remove(id)

	_, ok := b.Version(id)
	require.False(t, ok)
}

func TestMakeComponentsAvailableOnMain(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := Open(fs, bitmapPath(t))
	require.NoError(t, err)

	id := common.ComponentID{Scope: "s", Name: "a"}
	b.Set(Entry{ID: id, Version: "1111111111111111111111111111111111111111"})
	b.MakeComponentsAvailableOnMain([]common.ComponentID{id})

	entries := b.All()
	require.Len(t, entries, 1)
	require.True(t, entries[0].AvailableOnMain)
}

func TestLockThenUnlockAllowsReacquire(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := Open(fs, bitmapPath(t))
	require.NoError(t, err)

	unlock, err := b.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock())

	unlock2, err := b.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock2())
}
