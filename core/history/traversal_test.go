// Copyright 2024 The Bit Authors
// This file is part of bit.

package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/record"
)

// linear: A <- B <- C
func linearHistory() *record.VersionHistory {
	return &record.VersionHistory{
		Scope: "s", Name: "n",
		Versions: []record.VersionParents{
			{Hash: "A"},
			{Hash: "B", Parents: []common.Ref{"A"}},
			{Hash: "C", Parents: []common.Ref{"B"}},
		},
	}
}

func TestAllHashesFromLinear(t *testing.T) {
	trav := New(linearHistory())
	r := trav.AllHashesFrom("C")
	require.ElementsMatch(t, []common.Ref{"A", "B", "C"}, r.Found)
	require.Empty(t, r.Missing)
}

func TestAllHashesFromReportsMissing(t *testing.T) {
	vh := &record.VersionHistory{
		Versions: []record.VersionParents{
			{Hash: "B", Parents: []common.Ref{"A"}},
		},
	}
	trav := New(vh)
	r := trav.AllHashesFrom("B")
	require.Equal(t, []common.Ref{"B"}, r.Found)
	require.Equal(t, []common.Ref{"A"}, r.Missing)
}

func TestTraversalDeterministicRegardlessOfParentOrder(t *testing.T) {
	// Two histories with the same edges declared in different order must
	// produce the same Found set and ordering.
	vh1 := &record.VersionHistory{Versions: []record.VersionParents{
		{Hash: "A"},
		{Hash: "B", Parents: []common.Ref{"A"}},
		{Hash: "C", Parents: []common.Ref{"A", "B"}},
	}}
	vh2 := &record.VersionHistory{Versions: []record.VersionParents{
		{Hash: "C", Parents: []common.Ref{"B", "A"}},
		{Hash: "A"},
		{Hash: "B", Parents: []common.Ref{"A"}},
	}}
	r1 := New(vh1).AllHashesFrom("C")
	r2 := New(vh2).AllHashesFrom("C")
	require.Equal(t, r1.Found, r2.Found)
}

func TestDivergeDataSameRef(t *testing.T) {
	trav := New(linearHistory())
	d := trav.DivergeData("B", "B")
	require.NotNil(t, d.CommonAncestor)
	require.Equal(t, common.Ref("B"), *d.CommonAncestor)
	require.False(t, d.Diverged)
}

// diamond: A <- B, A <- C, B+C <- D (merge)
func diamondHistory() *record.VersionHistory {
	return &record.VersionHistory{
		Versions: []record.VersionParents{
			{Hash: "A"},
			{Hash: "B", Parents: []common.Ref{"A"}},
			{Hash: "C", Parents: []common.Ref{"A"}},
			{Hash: "D", Parents: []common.Ref{"B", "C"}},
		},
	}
}

func TestDivergeDataFindsLCA(t *testing.T) {
	trav := New(diamondHistory())
	d := trav.DivergeData("B", "C")
	require.NotNil(t, d.CommonAncestor)
	require.Equal(t, common.Ref("A"), *d.CommonAncestor)
	require.True(t, d.Diverged)
}

func TestIsRefPartOfHistory(t *testing.T) {
	trav := New(diamondHistory())
	require.True(t, trav.IsRefPartOfHistory("D", "A"))
	require.True(t, trav.IsRefPartOfHistory("D", "B"))
	require.False(t, trav.IsRefPartOfHistory("B", "C"))
}

func TestIsGraphCompleteSinceMemoizes(t *testing.T) {
	vh := linearHistory()
	trav := New(vh)
	require.True(t, trav.IsGraphCompleteSince("C"))
	require.True(t, vh.IsMarkedGraphCompleteFrom("C"))

	// A second call must hit the memoized mark without re-walking — assert
	// indirectly by checking it still reports complete even if we feed it a
	// history that's been (conceptually) mutated underneath.
	require.True(t, trav.IsGraphCompleteSince("C"))
}

func TestIsMergePendingEmptyRemote(t *testing.T) {
	trav := New(linearHistory())
	require.False(t, trav.IsMergePending("B", ""))
}

func TestMembershipKnowsUnrelated(t *testing.T) {
	other := common.Ref("Z")
	vh := &record.VersionHistory{
		Versions: []record.VersionParents{
			{Hash: "Z"},
			{Hash: "A", Unrelated: &other},
		},
	}
	trav := New(vh)
	d := trav.DivergeData("A", "Z")
	require.False(t, d.Diverged)
}
