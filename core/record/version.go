// Copyright 2024 The Bit Authors
// This file is part of bit.

package record

import (
	"encoding/json"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
)

// Version is one point in a component's history (§3).
//
//   - Parents is empty for the initial version, one entry for a linear tag,
//     two or more for a merge.
//   - Unrelated links a formerly-separate history that was grafted in; it
//     carries no ancestry, only membership (§4.2, §9).
//   - Squashed lists the prior parents a collapsed range replaced; also
//     membership-only.
//   - Files points at the FileTree for this version's working set.
//   - Ext is the opaque per-extension config payload (§3, §9).
type Version struct {
	Parents   []common.Ref               `json:"parents"`
	Unrelated *common.Ref                `json:"unrelated,omitempty"`
	Squashed  []common.Ref               `json:"squashed,omitempty"`
	Files     common.Ref                 `json:"files"`
	Ext       map[string]json.RawMessage `json:"ext,omitempty"`
	Removed   bool                       `json:"removed,omitempty"`
}

func (Version) Kind() objstore.Kind { return objstore.KindVersion }

// LoadVersion fetches and validates a Version by Ref.
func LoadVersion(store *objstore.Store, ref common.Ref) (*Version, error) {
	var v Version
	if err := loadInto(store, ref, objstore.KindVersion, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// IsInitial reports whether v has no parents.
func (v *Version) IsInitial() bool { return len(v.Parents) == 0 }

// IsMerge reports whether v has two or more parents.
func (v *Version) IsMerge() bool { return len(v.Parents) >= 2 }
