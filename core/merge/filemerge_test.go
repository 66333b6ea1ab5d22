// Copyright 2024 The Bit Authors
// This file is part of bit.

package merge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeFileUnchangedLocallyAdoptsOther(t *testing.T) {
	base := []byte("a\nb\nc\n")
	other := []byte("a\nb\nc\nd\n")
	res := MergeFile(base, base, other, StrategyPrompt)
	require.Equal(t, other, res.Content)
	require.False(t, res.Conflict)
}

func TestMergeFileChangedOnlyLocallyKeepsCurrent(t *testing.T) {
	base := []byte("a\nb\nc\n")
	current := []byte("a\nb\nX\n")
	res := MergeFile(base, current, base, StrategyPrompt)
	require.Equal(t, current, res.Content)
	require.False(t, res.Conflict)
}

func TestMergeFileIdenticalChangesNoConflict(t *testing.T) {
	base := []byte("a\nb\nc\n")
	changed := []byte("a\nb\nX\n")
	res := MergeFile(base, changed, changed, StrategyPrompt)
	require.Equal(t, changed, res.Content)
	require.False(t, res.Conflict)
}

func TestMergeFileConflictingChangesProducesMarkers(t *testing.T) {
	base := []byte("a\nb\nc\n")
	current := []byte("a\nX\nc\n")
	other := []byte("a\nY\nc\n")
	res := MergeFile(base, current, other, StrategyPrompt)
	require.True(t, res.Conflict)
	require.Contains(t, string(res.Content), "<<<<<<< current")
	require.Contains(t, string(res.Content), ">>>>>>> other")
}

func TestMergeFileStrategyOursAndTheirs(t *testing.T) {
	base := []byte("a\nb\nc\n")
	current := []byte("a\nX\nc\n")
	other := []byte("a\nY\nc\n")

	ours := MergeFile(base, current, other, StrategyOurs)
	require.Equal(t, current, ours.Content)
	require.False(t, ours.Conflict)

	theirs := MergeFile(base, current, other, StrategyTheirs)
	require.Equal(t, other, theirs.Content)
	require.False(t, theirs.Conflict)
}

func TestMergeFileNonOverlappingEditsNoConflict(t *testing.T) {
	base := []byte("a\nb\nc\nd\ne\n")
	current := []byte("X\nb\nc\nd\ne\n")
	other := []byte("a\nb\nc\nd\nY\n")
	res := MergeFile(base, current, other, StrategyPrompt)
	require.False(t, res.Conflict)
	require.Equal(t, "X\nb\nc\nd\nY\n", string(res.Content))
}
