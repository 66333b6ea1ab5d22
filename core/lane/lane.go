// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package lane implements the lane algebra of spec §4.3: create, add/remove
// component, readme, merge status and validation, all operating on the
// record.Lane data model.
package lane

import (
	"crypto/sha1"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/sessioncfg"
	"github.com/alekstar79/bit/core/history"
	"github.com/alekstar79/bit/core/record"
)

// ErrReservedName is returned when a lane is created or renamed to one of
// the reserved default-lane names (§3).
var ErrReservedName = errors.New("lane: reserved name")

// ErrDuplicateComponent marks a Lane with two entries sharing an
// id-without-version (§4.3 validate).
var ErrDuplicateComponent = errors.New("lane: duplicate component id")

// ErrHeadIsTag marks a Lane component head that is not a snap (§3 invariant,
// §8 "Lane head snap rule").
var ErrHeadIsTag = errors.New("lane: component head is a tag, not a snap")

func isReserved(name string) bool {
	return name == record.DefaultLaneName || name == record.PreviousDefaultLaneName
}

// Create assigns a fresh random hash (seeded from a UUID, per §4.3) and
// records log metadata. nowRFC3339 and session are supplied by the caller
// so the log metadata stays deterministic and testable; the hash is random.
func Create(name, scope string, forkedFrom *string, session *sessioncfg.Session, nowRFC3339 string) (*record.Lane, error) {
	if isReserved(name) {
		return nil, fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	seed := uuid.New()
	sum := sha1.Sum(seed[:])
	l := &record.Lane{
		Name:       name,
		Scope:      scope,
		Hash:       common.Ref(fmt.Sprintf("%x", sum)),
		Log:        session.NewLogEntry(nowRFC3339),
		ForkedFrom: forkedFrom,
		IsNew:      true,
	}
	return l, nil
}

// AddComponent replaces any existing entry sharing id's without-version
// identity, setting HasChanged if the head actually differs (§4.3).
func AddComponent(l *record.Lane, id common.ComponentID, head common.Ref) {
	for i, c := range l.Components {
		if c.ID.EqualWithoutVersion(id) {
			if c.Head != head {
				l.Components[i].Head = head
				l.HasChanged = true
			}
			return
		}
	}
	l.Components = append(l.Components, record.LaneComponent{ID: id, Head: head})
	l.HasChanged = true
}

// RemoveComponent removes the entry matching id's without-version identity.
// Reports whether anything was removed.
func RemoveComponent(l *record.Lane, id common.ComponentID) bool {
	for i, c := range l.Components {
		if c.ID.EqualWithoutVersion(id) {
			l.Components = append(l.Components[:i], l.Components[i+1:]...)
			l.HasChanged = true
			return true
		}
	}
	return false
}

// SetReadmeComponent sets (or clears, if id is nil) the lane's readme
// component, identified by its "scope/name" key.
func SetReadmeComponent(l *record.Lane, id *common.ComponentID) {
	if id == nil {
		l.Readme = nil
		l.HasChanged = true
		return
	}
	key := id.Key()
	l.Readme = &key
	l.HasChanged = true
}

// Validate enforces §4.3's invariants: no duplicate ids, every head a snap
// (not a tag — i.e. a well-formed 40-hex Ref), name not reserved.
func Validate(l *record.Lane) error {
	if isReserved(l.Name) {
		return fmt.Errorf("%w: %q", ErrReservedName, l.Name)
	}
	seen := map[string]struct{}{}
	for _, c := range l.Components {
		key := c.ID.WithoutVersion().Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateComponent, key)
		}
		seen[key] = struct{}{}
		if !c.Head.Valid() {
			return fmt.Errorf("%w: %s head %q", ErrHeadIsTag, key, c.Head)
		}
	}
	return nil
}

// IsEqual reports same id() and same sorted set of (id, head) pairs (§4.3).
func IsEqual(a, b *record.Lane) bool {
	if a.Scope != b.Scope || a.Name != b.Name {
		return false
	}
	if len(a.Components) != len(b.Components) {
		return false
	}
	key := func(c record.LaneComponent) string { return c.ID.WithoutVersion().Key() + "@" + string(c.Head) }
	ak := make([]string, 0, len(a.Components))
	bk := make([]string, 0, len(b.Components))
	for _, c := range a.Components {
		ak = append(ak, key(c))
	}
	for _, c := range b.Components {
		bk = append(bk, key(c))
	}
	sort.Strings(ak)
	sort.Strings(bk)
	for i := range ak {
		if ak[i] != bk[i] {
			return false
		}
	}
	return true
}

// ModelHeadLookup resolves the current main head for a component, used by
// IsFullyMerged.
type ModelHeadLookup func(id common.ComponentID) (common.Ref, *history.Traversal, bool)

// IsFullyMerged reports whether, for every component on the lane, the
// model's current head reaches (via history) the lane's recorded head for
// that component. A component with no ModelComponent, or whose head isn't
// reachable, makes the lane unmerged (§4.3).
func IsFullyMerged(l *record.Lane, lookup ModelHeadLookup) bool {
	for _, c := range l.Components {
		head, trav, ok := lookup(c.ID)
		if !ok {
			return false
		}
		if head == c.Head {
			continue
		}
		if !trav.IsRefPartOfHistory(head, c.Head) {
			return false
		}
	}
	return true
}
