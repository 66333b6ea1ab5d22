// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package record defines the tagged-union object model of spec §3: Version,
// ModelComponent, Lane, VersionHistory, FileTree and Source, each an
// immutable, hash-identified record persisted through corelib/objstore.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
)

// Reserved lane names (§3 Lane invariants).
const (
	DefaultLaneName         = "main"
	PreviousDefaultLaneName = "master"
)

// Object is any of the six tagged-union variants. Kind identifies which one
// without requiring a type switch everywhere a Ref is loaded generically.
type Object interface {
	Kind() objstore.Kind
}

// Save serializes obj through store and returns its content address.
func Save(store *objstore.Store, obj Object) (common.Ref, error) {
	return store.Put(obj.Kind(), obj)
}

// loadInto fetches ref, checks its kind matches want, and unmarshals the
// payload into out.
func loadInto(store *objstore.Store, ref common.Ref, want objstore.Kind, out any) error {
	kind, payload, err := store.Get(ref)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: %s: expected kind %s, got %s", objstore.ErrCorruptRecord, ref, want, kind)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s: %v", objstore.ErrCorruptRecord, ref, err)
	}
	return nil
}
