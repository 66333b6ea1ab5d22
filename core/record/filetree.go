// Copyright 2024 The Bit Authors
// This file is part of bit.

package record

import (
	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
)

// FileTree maps a version's working-set file paths to Source blob refs.
type FileTree struct {
	Files map[string]common.Ref `json:"files"`
}

func (FileTree) Kind() objstore.Kind { return objstore.KindFileTree }

// LoadFileTree fetches and validates a FileTree by Ref.
func LoadFileTree(store *objstore.Store, ref common.Ref) (*FileTree, error) {
	var ft FileTree
	if err := loadInto(store, ref, objstore.KindFileTree, &ft); err != nil {
		return nil, err
	}
	return &ft, nil
}

// Source is a single file's raw content, addressed by its own hash.
type Source struct {
	Content []byte `json:"content"`
}

func (Source) Kind() objstore.Kind { return objstore.KindSource }

// LoadSource fetches and validates a Source by Ref.
func LoadSource(store *objstore.Store, ref common.Ref) (*Source, error) {
	var s Source
	if err := loadInto(store, ref, objstore.KindSource, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
