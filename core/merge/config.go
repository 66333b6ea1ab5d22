// Copyright 2024 The Bit Authors
// This file is part of bit.

package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/imdario/mergo"
)

// DepEntry is one per-component merge result for a single dependency field
// (`dependencies` or `peerDependencies`), feeding the two-pass aggregation
// of §4.5.
type DepEntry struct {
	Pkg    string
	Ours   string // the workspace's current version/range for this pkg
	Theirs string // the incoming version/range
	Force  bool   // true when the entry came from an explicit user pin, not auto-detection
	Clean  bool   // true if this component's per-file/per-field merge succeeded without conflict
}

// ConflictTuple is one (ours,theirs) pair recorded for a conflicting pkg.
type ConflictTuple struct{ Ours, Theirs string }

// UpdateDecision is a scheduled workspace policy update `[from,to]`.
type UpdateDecision struct{ Pkg, From, To string }

// ConfigMergeResult is the workspace-level outcome of §4.5.
type ConfigMergeResult struct {
	Updates             []UpdateDecision
	WorkspaceConflicts  map[string]ConflictTuple
	ClearedPerComponent map[string]bool // pkgs promoted to workspace level, cleared per-component
}

// MergeWorkspaceDeps runs the two passes of §4.5 over all per-component
// merge results for one field (dependencies or peerDependencies), given the
// current workspace policy versions.
func MergeWorkspaceDeps(entries []DepEntry, workspacePolicy map[string]string) ConfigMergeResult {
	nonConflicting := map[string]map[string]struct{}{}
	conflicting := map[string]map[ConflictTuple]struct{}{}

	for _, e := range entries {
		if e.Clean && !e.Force {
			if nonConflicting[e.Pkg] == nil {
				nonConflicting[e.Pkg] = map[string]struct{}{}
			}
			nonConflicting[e.Pkg][e.Theirs] = struct{}{}
		} else if !e.Clean {
			t := ConflictTuple{Ours: e.Ours, Theirs: e.Theirs}
			if conflicting[e.Pkg] == nil {
				conflicting[e.Pkg] = map[ConflictTuple]struct{}{}
			}
			conflicting[e.Pkg][t] = struct{}{}
		}
	}

	result := ConfigMergeResult{
		WorkspaceConflicts: map[string]ConflictTuple{},
		ClearedPerComponent: map[string]bool{},
	}

	pkgs := map[string]struct{}{}
	for pkg := range workspacePolicy {
		pkgs[pkg] = struct{}{}
	}
	for pkg := range nonConflicting {
		pkgs[pkg] = struct{}{}
	}
	for pkg := range conflicting {
		pkgs[pkg] = struct{}{}
	}

	ordered := make([]string, 0, len(pkgs))
	for pkg := range pkgs {
		ordered = append(ordered, pkg)
	}
	sort.Strings(ordered)

	for _, pkg := range ordered {
		wsVersion := workspacePolicy[pkg]

		if set := nonConflicting[pkg]; len(set) == 1 {
			var only string
			for v := range set {
				only = v
			}
			if only != wsVersion && wsVersion != "" {
				result.Updates = append(result.Updates, UpdateDecision{Pkg: pkg, From: wsVersion, To: only})
			}
		}

		if tuples := conflicting[pkg]; len(tuples) == 1 {
			var t ConflictTuple
			for tt := range tuples {
				t = tt
			}
			// The compatibility check is against the workspace policy's own
			// range for pkg, not the per-component tuple's "ours" — a
			// component may report an out-of-date "ours" that the workspace
			// policy has already moved past (§4.5 scenario 6).
			base := wsVersion
			if base == "" {
				base = t.Ours
			}
			d := classify(base, t.Theirs)
			result.ClearedPerComponent[pkg] = true
			switch d {
			case decisionUpdate:
				result.Updates = append(result.Updates, UpdateDecision{Pkg: pkg, From: base, To: preserveRangePrefix(base, t.Theirs)})
			case decisionConflict:
				result.WorkspaceConflicts[pkg] = t
			case decisionNoUpdate, decisionSkip:
				// no change
			}
		}
	}

	return result
}

type decision int

const (
	decisionNoUpdate decision = iota
	decisionUpdate
	decisionConflict
	decisionSkip
)

// classify implements the ours/theirs decision table of §4.5.
func classify(ours, theirs string) decision {
	oursVer, oursVerErr := semver.NewVersion(ours)
	theirsVer, theirsVerErr := semver.NewVersion(theirs)
	oursIsVersion := oursVerErr == nil
	theirsIsVersion := theirsVerErr == nil

	oursRange, oursRangeErr := semver.NewConstraint(ours)
	theirsRange, theirsRangeErr := semver.NewConstraint(theirs)
	oursIsRange := oursRangeErr == nil
	theirsIsRange := theirsRangeErr == nil

	if !oursIsVersion && !oursIsRange {
		return decisionSkip
	}
	if !theirsIsVersion && !theirsIsRange {
		return decisionSkip
	}

	switch {
	case oursIsVersion && theirsIsVersion:
		if theirsVer.GreaterThan(oursVer) {
			return decisionConflict
		}
		return decisionNoUpdate

	case oursIsRange && theirsIsRange && !oursIsVersion && !theirsIsVersion:
		oursMin, theirsMin := rangeMin(ours), rangeMin(theirs)
		if oursMin != nil && theirsMin != nil && theirsMin.GreaterThan(oursMin) {
			return decisionUpdate
		}
		return decisionNoUpdate

	case oursIsRange && theirsIsVersion:
		if oursRange.Check(theirsVer) {
			return decisionUpdate
		}
		oursMin := rangeMin(ours)
		if oursMin != nil && oursMin.GreaterThan(theirsVer) {
			return decisionConflict
		}
		return decisionNoUpdate

	case oursIsVersion && theirsIsRange:
		if theirsRange.Check(oursVer) {
			return decisionUpdate
		}
		theirsMin := rangeMin(theirs)
		if theirsMin != nil && theirsMin.GreaterThan(oursVer) {
			return decisionConflict
		}
		return decisionNoUpdate
	}
	return decisionSkip
}

// rangeMin approximates "the minimum version satisfying a range" by
// stripping the leading comparator/prefix, matching the kind of ranges npm
// workspace policies carry (^1.2.0, ~1.2.0, >=1.2.0).
func rangeMin(r string) *semver.Version {
	trimmed := strings.TrimLeft(r, "^~><=! ")
	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return nil
	}
	return v
}

// preserveRangePrefix keeps ours' range prefix (^ or ~) when updating to
// theirs' concrete version, per the version/range decision row of §4.5.
func preserveRangePrefix(ours, theirs string) string {
	prefix := ""
	if strings.HasPrefix(ours, "^") {
		prefix = "^"
	} else if strings.HasPrefix(ours, "~") {
		prefix = "~"
	}
	return prefix + theirs
}

// ConflictEncoding formats an unresolved workspace conflict using the
// `CONFLICT::<ours>::<theirs>` marker fixed by §6.
func ConflictEncoding(t ConflictTuple) string {
	return fmt.Sprintf("CONFLICT::%s::%s", t.Ours, t.Theirs)
}

// MergeExtFields merges the non-conflicting, non-pkg fields of two opaque
// per-component config extension maps (the `ext` payload of record.Version)
// before the pkg-specific semver table runs — e.g. merging arbitrary
// extension settings two components both declared with no overlap.
func MergeExtFields(dst, src map[string]any) error {
	return mergo.Merge(&dst, src)
}
