// Copyright 2024 The Bit Authors
// This file is part of bit.

package checkout

import (
	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/history"
	"github.com/alekstar79/bit/core/record"
)

// ModelLookup resolves the live model state needed to classify one
// component, keeping classify.go free of any storage dependency.
type ModelLookup interface {
	// Component returns the component's ModelComponent, or ok=false if the
	// workspace has never seen it (the §4.6 "new component" case).
	Component(id common.ComponentID) (mc *record.ModelComponent, ok bool)
	// Traversal returns the history.Traversal over id's VersionHistory.
	Traversal(id common.ComponentID) (*history.Traversal, bool)
	// Bitmap returns the currently checked-out head and remote-known head
	// for id, plus whether id is tracked at all.
	Bitmap(id common.ComponentID) (currentHead, remoteHead common.Ref, tracked bool)
	// IsModified reports whether the on-disk files for id differ from
	// currentHead's recorded FileTree.
	IsModified(id common.ComponentID) bool
	// Version loads a Version record by ref, to inspect Removed.
	Version(ref common.Ref) (*record.Version, error)
}

// resolveTargetHead picks the version id should check out to, per §4.6 step
// 4's "COMPUTE-NEW-VER" box and §9(b)'s versionPerId override.
func resolveTargetHead(p Props, id common.ComponentID, mc *record.ModelComponent) (common.Ref, bool) {
	if override, ok := p.VersionPerID[id.Key()]; ok {
		return override, true
	}
	switch p.Target {
	case TargetLiteralVersion:
		return p.LiteralVersion, true
	case TargetLatest:
		if _, ref, ok := mc.LatestVersionIfExist(); ok {
			return ref, true
		}
		return "", false
	case TargetHead, TargetReset, TargetPerID:
		if mc.Head == "" {
			return "", false
		}
		return mc.Head, true
	}
	return "", false
}

// Classify implements componentStatusBeforeMergeAttempt: the per-component
// state machine of §4.6 step 4.
func Classify(p Props, id common.ComponentID, lk ModelLookup) ComponentStatus {
	mc, exists := lk.Component(id)
	if !exists {
		return ComponentStatus{ID: id, Outcome: OutcomeFailure, Reason: ReasonNewComponent, UnchangedLegitimately: true}
	}

	currentHead, remoteHead, _ := lk.Bitmap(id)
	trav, _ := lk.Traversal(id)

	if trav != nil && trav.IsMergePending(currentHead, remoteHead) {
		return ComponentStatus{ID: id, Outcome: OutcomeFailure, Reason: ReasonMergePending}
	}

	targetHead, hasTarget := resolveTargetHead(p, id, mc)
	if !hasTarget {
		return ComponentStatus{ID: id, Outcome: OutcomeFailure, Reason: ReasonNoVersion}
	}

	if v, err := lk.Version(targetHead); err == nil && v.Removed {
		return ComponentStatus{ID: id, Outcome: OutcomeShouldBeRemoved, Reason: ReasonRemoved, UnchangedLegitimately: true, TargetHead: targetHead}
	}

	if targetHead == currentHead {
		reason := ReasonAlreadyAt
		if p.Target == TargetLatest {
			reason = ReasonAlreadyAtLatest
		}
		return ComponentStatus{ID: id, Outcome: OutcomeFailure, Reason: reason, UnchangedLegitimately: true, CurrentHead: currentHead, TargetHead: targetHead}
	}

	modified := lk.IsModified(id)
	if !modified || p.Reset {
		if p.Reset && !modified {
			return ComponentStatus{ID: id, Outcome: OutcomeFailure, Reason: ReasonNotModified, UnchangedLegitimately: true, CurrentHead: currentHead, TargetHead: targetHead}
		}
		return ComponentStatus{ID: id, Outcome: OutcomeReadyNoMerge, CurrentHead: currentHead, TargetHead: targetHead}
	}

	// Locally modified and switching to a different version: §4.4's special
	// base rule for "checkout with modifications" ("stash → switch → pop")
	// fixes the three-way merge base at the target version itself, not the
	// LCA of current and target — the working edit is diffed against where
	// it's landing, so an edit untouched by the incoming version survives
	// the switch intact.
	return ComponentStatus{ID: id, Outcome: OutcomeReadyNeedsMerge, CurrentHead: currentHead, TargetHead: targetHead, BaseHead: targetHead}
}
