// Copyright 2024 The Bit Authors
// This file is part of bit.

package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/history"
	"github.com/alekstar79/bit/core/record"
)

type fakeLookup struct {
	components map[string]*record.ModelComponent
	traversals map[string]*history.Traversal
	bitmap     map[string][2]common.Ref // [current, remote]
	modified   map[string]bool
	versions   map[common.Ref]*record.Version
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		components: map[string]*record.ModelComponent{},
		traversals: map[string]*history.Traversal{},
		bitmap:     map[string][2]common.Ref{},
		modified:   map[string]bool{},
		versions:   map[common.Ref]*record.Version{},
	}
}

func (f *fakeLookup) Component(id common.ComponentID) (*record.ModelComponent, bool) {
	mc, ok := f.components[id.Key()]
	return mc, ok
}

func (f *fakeLookup) Traversal(id common.ComponentID) (*history.Traversal, bool) {
	t, ok := f.traversals[id.Key()]
	return t, ok
}

func (f *fakeLookup) Bitmap(id common.ComponentID) (currentHead, remoteHead common.Ref, tracked bool) {
	pair, ok := f.bitmap[id.Key()]
	if !ok {
		return "", "", false
	}
	return pair[0], pair[1], true
}

func (f *fakeLookup) IsModified(id common.ComponentID) bool { return f.modified[id.Key()] }

func (f *fakeLookup) Version(ref common.Ref) (*record.Version, error) {
	v, ok := f.versions[ref]
	if !ok {
		return &record.Version{}, nil
	}
	return v, nil
}

var compA = common.ComponentID{Scope: "s", Name: "a"}

const (
	headV1 = common.Ref("1111111111111111111111111111111111111111")
	headV2 = common.Ref("2222222222222222222222222222222222222222")
)

func TestClassifyNewComponent(t *testing.T) {
	lk := newFakeLookup()
	st := Classify(Props{Target: TargetHead}, compA, lk)
	require.Equal(t, OutcomeFailure, st.Outcome)
	require.Equal(t, ReasonNewComponent, st.Reason)
	require.True(t, st.UnchangedLegitimately)
}

func TestClassifyAlreadyAtTarget(t *testing.T) {
	lk := newFakeLookup()
	lk.components[compA.Key()] = &record.ModelComponent{Head: headV1}
	lk.bitmap[compA.Key()] = [2]common.Ref{headV1, ""}
	st := Classify(Props{Target: TargetHead}, compA, lk)
	require.Equal(t, OutcomeFailure, st.Outcome)
	require.Equal(t, ReasonAlreadyAt, st.Reason)
}

func TestClassifyReadyNoMergeWhenUnmodified(t *testing.T) {
	lk := newFakeLookup()
	lk.components[compA.Key()] = &record.ModelComponent{Head: headV2}
	lk.bitmap[compA.Key()] = [2]common.Ref{headV1, ""}
	st := Classify(Props{Target: TargetHead}, compA, lk)
	require.Equal(t, OutcomeReadyNoMerge, st.Outcome)
	require.Equal(t, headV2, st.TargetHead)
}

func TestClassifyResetIsNoOpWhenUnmodified(t *testing.T) {
	lk := newFakeLookup()
	lk.components[compA.Key()] = &record.ModelComponent{Head: headV2}
	lk.bitmap[compA.Key()] = [2]common.Ref{headV1, ""}
	st := Classify(Props{Target: TargetReset, Reset: true}, compA, lk)
	require.Equal(t, OutcomeFailure, st.Outcome)
	require.Equal(t, ReasonNotModified, st.Reason)
}

func TestClassifyShouldBeRemoved(t *testing.T) {
	lk := newFakeLookup()
	lk.components[compA.Key()] = &record.ModelComponent{Head: headV2}
	lk.bitmap[compA.Key()] = [2]common.Ref{headV1, ""}
	lk.versions[headV2] = &record.Version{Removed: true}
	st := Classify(Props{Target: TargetHead}, compA, lk)
	require.Equal(t, OutcomeShouldBeRemoved, st.Outcome)
}

func TestClassifyVersionPerIDOverridesTarget(t *testing.T) {
	lk := newFakeLookup()
	lk.components[compA.Key()] = &record.ModelComponent{Head: headV1}
	lk.bitmap[compA.Key()] = [2]common.Ref{headV1, ""}
	st := Classify(Props{Target: TargetHead, VersionPerID: map[string]common.Ref{compA.Key(): headV2}}, compA, lk)
	require.Equal(t, headV2, st.TargetHead)
	require.Equal(t, OutcomeReadyNoMerge, st.Outcome)
}

// §4.4's special base rule ("checkout with modifications"): switching a
// locally-modified component must merge against the target version itself,
// not the LCA of current and target.
func TestClassifyNeedsMergeUsesTargetAsBase(t *testing.T) {
	lk := newFakeLookup()
	lk.components[compA.Key()] = &record.ModelComponent{Head: headV2}
	lk.bitmap[compA.Key()] = [2]common.Ref{headV1, ""}
	lk.modified[compA.Key()] = true

	st := Classify(Props{Target: TargetHead}, compA, lk)
	require.Equal(t, OutcomeReadyNeedsMerge, st.Outcome)
	require.Equal(t, headV2, st.TargetHead)
	require.Equal(t, headV2, st.BaseHead)
}

func TestExitCodeMapping(t *testing.T) {
	require.Equal(t, 2, ExitCode(nil, argCombinationError("bad")))
	require.Equal(t, 0, ExitCode(&Report{Failed: map[string]FailureReason{"a": ReasonAlreadyAt}}, nil))
	require.Equal(t, 1, ExitCode(&Report{Failed: map[string]FailureReason{"a": ReasonMergePending}}, nil))
	require.Equal(t, 0, ExitCode(nil, nil))
}
