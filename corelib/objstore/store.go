// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.
//
// Package objstore persists and loads typed immutable records by content
// hash, grouped on disk by a two-character prefix directory — the layout
// fixed by spec §6.
package objstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	perrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/alekstar79/bit-corelib/common"
)

// ErrCorruptRecord marks a persisted record that failed to parse or to
// validate against its schema. Always fatal at the caller (§7.6).
var ErrCorruptRecord = errors.New("objstore: corrupt record")

// ErrNotFound is returned by Get when a Ref is absent locally.
var ErrNotFound = errors.New("objstore: ref not found")

// Importer fetches records this store doesn't have yet from a remote owner.
// The CLI/registry layer supplies a concrete implementation; this package
// only defines the contract (§4.1, §6).
type Importer interface {
	FetchMany(refs []common.Ref) (map[common.Ref][]byte, error)
}

// Store is a content-addressed, filesystem-backed object store.
//
// Writes are atomic per record (write-temp, rename into place); concurrent
// Put of the same Ref is safe because identical canonical bytes produce an
// identical file, so a racing writer overwrites with byte-identical
// content. Reads never block writers of other records.
type Store struct {
	fs   afero.Fs
	root string
	imp  Importer
}

// New opens (creating if absent) an object store rooted at dir.
func New(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, perrors.Wrapf(err, "objstore: create root %s", dir)
	}
	return &Store{fs: fs, root: dir}, nil
}

// NewLocal opens a Store rooted at a real OS directory.
func NewLocal(dir string) (*Store, error) {
	return New(afero.NewOsFs(), dir)
}

// SetImporter wires the remote-fetch collaborator used by ImportMany.
func (s *Store) SetImporter(imp Importer) { s.imp = imp }

func (s *Store) pathFor(ref common.Ref) string {
	r := string(ref)
	prefix := r
	if len(r) >= 2 {
		prefix = r[:2]
	}
	return filepath.Join(s.root, prefix, r)
}

// Put serializes payload under kind canonically, hashes it, and writes the
// file if absent. Idempotent: a second Put of the same logical content
// returns the same Ref without rewriting.
func (s *Store) Put(kind Kind, payload any) (common.Ref, error) {
	bytes, err := marshalCanonical(kind, payload)
	if err != nil {
		return common.EmptyRef, perrors.Wrap(err, "objstore: marshal")
	}
	ref := common.HashBytes(bytes)
	path := s.pathFor(ref)
	if ok, _ := afero.Exists(s.fs, path); ok {
		return ref, nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.EmptyRef, perrors.Wrapf(err, "objstore: mkdir for %s", ref)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, bytes, 0o644); err != nil {
		return common.EmptyRef, perrors.Wrapf(err, "objstore: write temp for %s", ref)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return common.EmptyRef, perrors.Wrapf(err, "objstore: rename into place for %s", ref)
	}
	return ref, nil
}

// Has reports whether ref is present locally.
func (s *Store) Has(ref common.Ref) bool {
	ok, _ := afero.Exists(s.fs, s.pathFor(ref))
	return ok
}

// Get loads and validates the record at ref. Returns ErrNotFound if absent
// locally, ErrCorruptRecord if present but malformed.
func (s *Store) Get(ref common.Ref) (Kind, []byte, error) {
	raw, err := afero.ReadFile(s.fs, s.pathFor(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return "", nil, perrors.Wrapf(err, "objstore: read %s", ref)
	}
	env, err := unmarshalEnvelope(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, ref, err)
	}
	if err := validatePayload(env.Kind, env.Payload); err != nil {
		return "", nil, err
	}
	// re-hash to enforce the hash-integrity invariant of §8.
	if common.HashBytes(raw) != ref {
		// raw includes a trailing newline the hash was computed over; only
		// flag true corruption (content doesn't match its own filename).
		return "", nil, fmt.Errorf("%w: %s: stored bytes do not hash to their own filename", ErrCorruptRecord, ref)
	}
	return env.Kind, env.Payload, nil
}

// ImportMany fetches remotely-owned records not present locally. A failed
// batch fetch is returned as a single error and each failed write as its own
// error, for the caller to log. A ref the remote does not return at all
// produces no error — a scope that doesn't exist remotely yet (the
// new-component case) is not an error.
func (s *Store) ImportMany(refs []common.Ref) []error {
	if s.imp == nil {
		return nil
	}
	var missing []common.Ref
	for _, r := range refs {
		if !s.Has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	fetched, err := s.imp.FetchMany(missing)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for ref, raw := range fetched {
		path := s.pathFor(ref)
		if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		tmp := path + ".tmp"
		if err := afero.WriteFile(s.fs, tmp, raw, 0o644); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.fs.Rename(tmp, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
