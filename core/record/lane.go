// Copyright 2024 The Bit Authors
// This file is part of bit.

package record

import (
	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
	"github.com/alekstar79/bit-corelib/sessioncfg"
)

// LaneComponent is one `(componentId → head)` binding inside a Lane (§3).
type LaneComponent struct {
	ID   common.ComponentID `json:"id"`
	Head common.Ref         `json:"head"`
}

// Lane is a named, mutable ref set (§3). Lanes are owned by the scope;
// modified-in-memory copies track IsNew/HasChanged and are only persisted
// on an explicit Save — those two flags are process-local bookkeeping, not
// part of the persisted payload.
type Lane struct {
	Name       string                  `json:"name"`
	Scope      string                  `json:"scope"`
	Hash       common.Ref              `json:"hash"`
	Log        sessioncfg.LogEntry     `json:"log"`
	Components []LaneComponent         `json:"components"`
	Readme     *string                 `json:"readmeComponent,omitempty"`
	ForkedFrom *string                 `json:"forkedFrom,omitempty"`

	IsNew       bool `json:"-"`
	HasChanged  bool `json:"-"`
}

func (Lane) Kind() objstore.Kind { return objstore.KindLane }

// LoadLane fetches and validates a Lane by Ref.
func LoadLane(store *objstore.Store, ref common.Ref) (*Lane, error) {
	var l Lane
	if err := loadInto(store, ref, objstore.KindLane, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ID returns the lane's (scope,name) identity.
func (l *Lane) ID() (scope, name string) { return l.Scope, l.Name }

// ComponentIDs without version, for intersecting with an incoming id set.
func (l *Lane) ComponentIDs() []common.ComponentID {
	ids := make([]common.ComponentID, 0, len(l.Components))
	for _, c := range l.Components {
		ids = append(ids, c.ID.WithoutVersion())
	}
	return ids
}

// Has reports whether id (ignoring version) is tracked by the lane.
func (l *Lane) Has(id common.ComponentID) (LaneComponent, bool) {
	for _, c := range l.Components {
		if c.ID.EqualWithoutVersion(id) {
			return c, true
		}
	}
	return LaneComponent{}, false
}
