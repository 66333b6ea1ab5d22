// Copyright 2024 The Bit Authors
// This file is part of bit.

package history

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/record"
)

// Traversal answers reachability, divergence and merge-pending queries
// over a single component's VersionHistory.
type Traversal struct {
	vh    *record.VersionHistory
	ids   *idTable
	index *btree.BTree // of btreeEntry, keyed by hash
}

// New builds a Traversal over vh. vh is read-only from Traversal's point of
// view; callers persist mutations (e.g. MarkGraphCompleteFrom) themselves.
func New(vh *record.VersionHistory) *Traversal {
	t := &Traversal{vh: vh, ids: newIDTable(), index: btree.New(32)}
	for _, vp := range vh.Versions {
		t.ids.id(vp.Hash)
		for _, p := range vp.Parents {
			t.ids.id(p)
		}
		t.index.ReplaceOrInsert(btreeEntry{hash: string(vp.Hash), vp: vp})
	}
	return t
}

func (t *Traversal) lookup(h common.Ref) (record.VersionParents, bool) {
	item := t.index.Get(btreeEntry{hash: string(h)})
	if item == nil {
		return record.VersionParents{}, false
	}
	return item.(btreeEntry).vp, true
}

// Reachable is the result of AllHashesFrom: the set of transitively reached
// parent hashes, plus any hash referenced but not present in the cache.
type Reachable struct {
	Found   []common.Ref
	Missing []common.Ref
}

// AllHashesFrom performs a DFS from start following Parents edges only —
// Unrelated is never followed (§4.2, §9). Squashed contributes to
// membership queries elsewhere, not to this default walk. Stops at hashes
// missing from the cache and reports them as Missing.
//
// The returned Found set is deterministic regardless of the order Parents
// or vh.Versions were declared in: membership is tracked in a roaring bitmap
// over interned ids, and the final list is sorted by hash, like Missing.
func (t *Traversal) AllHashesFrom(start common.Ref) Reachable {
	foundSet := roaring.New()
	missingSet := map[common.Ref]struct{}{}
	visited := map[common.Ref]struct{}{}

	var stack []common.Ref
	stack = append(stack, start)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[h]; ok {
			continue
		}
		visited[h] = struct{}{}

		vp, ok := t.lookup(h)
		if !ok {
			missingSet[h] = struct{}{}
			continue
		}
		foundSet.Add(t.ids.id(h))
		for _, p := range vp.Parents {
			if _, ok := visited[p]; !ok {
				stack = append(stack, p)
			}
		}
	}

	found := make([]common.Ref, 0, foundSet.GetCardinality())
	it := foundSet.Iterator()
	for it.HasNext() {
		found = append(found, t.ids.ref(it.Next()))
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	missing := make([]common.Ref, 0, len(missingSet))
	for h := range missingSet {
		missing = append(missing, h)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return Reachable{Found: found, Missing: missing}
}

// IsRefPartOfHistory reports whether candidate is reachable from start.
func (t *Traversal) IsRefPartOfHistory(start, candidate common.Ref) bool {
	for _, h := range t.AllHashesFrom(start).Found {
		if h == candidate {
			return true
		}
	}
	return false
}

// IsGraphCompleteSince reports true iff every transitive parent of ref is
// present locally. A prior true result is memoized on the VersionHistory
// record (§8: "History closure under complete mark") and returned without
// re-walking; callers that want the mark persisted must Save vh themselves.
func (t *Traversal) IsGraphCompleteSince(ref common.Ref) bool {
	if t.vh.IsMarkedGraphCompleteFrom(ref) {
		return true
	}
	complete := len(t.AllHashesFrom(ref).Missing) == 0
	if complete {
		t.vh.MarkGraphCompleteFrom(ref)
	}
	return complete
}

// membershipKnows reports whether start's history "knows" hash h via a
// squashed or unrelated link, even though h isn't an ancestor by Parents
// edges (§4.2.2, §9 "membership hints").
func (t *Traversal) membershipKnows(start, h common.Ref) bool {
	visited := map[common.Ref]struct{}{}
	var stack []common.Ref
	stack = append(stack, start)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		vp, ok := t.lookup(cur)
		if !ok {
			continue
		}
		if vp.Unrelated != nil && *vp.Unrelated == h {
			return true
		}
		for _, sq := range vp.Squashed {
			if sq == h {
				return true
			}
		}
		for _, p := range vp.Parents {
			stack = append(stack, p)
		}
	}
	return false
}

// Diverge is the result of DivergeData: standard LCA over parent edges.
type Diverge struct {
	CommonAncestor *common.Ref
	LocalOnly      []common.Ref
	RemoteOnly     []common.Ref
	Diverged       bool
}

// DivergeData computes the standard LCA between local and remote. If no
// common ancestor exists but either side records the other via Unrelated or
// Squashed, Diverged is reported false with empty ahead/behind (§4.2).
func (t *Traversal) DivergeData(local, remote common.Ref) Diverge {
	if local == remote {
		return Diverge{CommonAncestor: &local}
	}
	localSet := t.AllHashesFrom(local)
	remoteSet := t.AllHashesFrom(remote)
	localAnc := toSet(localSet.Found)
	remoteAnc := toSet(remoteSet.Found)

	var candidates []common.Ref
	for h := range localAnc {
		if _, ok := remoteAnc[h]; ok {
			candidates = append(candidates, h)
		}
	}

	if len(candidates) == 0 {
		if t.membershipKnows(local, remote) || t.membershipKnows(remote, local) {
			return Diverge{Diverged: false}
		}
		return Diverge{Diverged: true, LocalOnly: setMinus(localAnc, remoteAnc), RemoteOnly: setMinus(remoteAnc, localAnc)}
	}

	lca := t.pickLCA(candidates, localAnc, remoteAnc)
	lcaAnc := ancestorsOf(t, lca)
	return Diverge{
		CommonAncestor: &lca,
		LocalOnly:      setMinus(localAnc, lcaAnc),
		RemoteOnly:     setMinus(remoteAnc, lcaAnc),
		Diverged:       lca != local && lca != remote,
	}
}

// pickLCA applies the deterministic tie-break of §4.2: among candidate
// common ancestors, pick the one with the greatest number of descendants in
// local ∪ remote; on tie, the lexicographically greatest hash.
func (t *Traversal) pickLCA(candidates []common.Ref, localAnc, remoteAnc map[common.Ref]struct{}) common.Ref {
	union := map[common.Ref]struct{}{}
	for h := range localAnc {
		union[h] = struct{}{}
	}
	for h := range remoteAnc {
		union[h] = struct{}{}
	}

	descendantCount := func(candidate common.Ref) int {
		n := 0
		for h := range union {
			if h == candidate {
				continue
			}
			if t.IsRefPartOfHistory(h, candidate) {
				n++
			}
		}
		return n
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	best := candidates[0]
	bestCount := descendantCount(best)
	for _, c := range candidates[1:] {
		cnt := descendantCount(c)
		if cnt > bestCount || (cnt == bestCount && c > best) {
			best, bestCount = c, cnt
		}
	}
	return best
}

// IsMergePending reports whether localHead and the recorded remoteHead for
// this component have diverged (§4.2 "Merge-pending").
func (t *Traversal) IsMergePending(localHead, remoteHead common.Ref) bool {
	if remoteHead == "" {
		return false
	}
	return t.DivergeData(localHead, remoteHead).Diverged
}

func toSet(refs []common.Ref) map[common.Ref]struct{} {
	m := make(map[common.Ref]struct{}, len(refs))
	for _, r := range refs {
		m[r] = struct{}{}
	}
	return m
}

func setMinus(a, b map[common.Ref]struct{}) []common.Ref {
	var out []common.Ref
	for h := range a {
		if _, ok := b[h]; !ok {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ancestorsOf(t *Traversal, ref common.Ref) map[common.Ref]struct{} {
	return toSet(t.AllHashesFrom(ref).Found)
}
