// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package bitmap implements the workspace Bitmap of spec §4.7: the
// persistent mapping from a tracked component (without version) to its
// currently checked-out version and files, held behind a single exclusive
// filesystem lock for the duration of a checkout (§5).
package bitmap

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/alekstar79/bit-corelib/common"
)

// Entry is one tracked component's bitmap row.
type Entry struct {
	ID      common.ComponentID `json:"id"`
	Version common.Ref         `json:"version"`
	Files   []string           `json:"files,omitempty"`
	Config  []string           `json:"config,omitempty"`

	// AvailableOnMain is flipped by MakeComponentsAvailableOnMain when
	// exiting a lane (§4.7).
	AvailableOnMain bool `json:"availableOnMain,omitempty"`
}

// onDisk is the single workspace file's JSON shape.
type onDisk struct {
	Entries    []Entry `json:"entries"`
	ActiveLane string  `json:"activeLane,omitempty"`
}

// Bitmap is the in-memory, loaded view of the workspace's persisted state.
type Bitmap struct {
	fs   afero.Fs
	path string
	lock *flock.Flock

	entries    map[string]Entry // keyed by ComponentID.WithoutVersion().Key()
	activeLane string
}

// Open loads (or initializes) the bitmap file at path, without acquiring
// the exclusive lock — call Lock before mutating.
func Open(fs afero.Fs, path string) (*Bitmap, error) {
	b := &Bitmap{fs: fs, path: path, lock: flock.New(path + ".lock"), entries: map[string]Entry{}}
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) {
			return b, nil
		}
		return nil, errors.Wrap(err, "bitmap: read")
	}
	var od onDisk
	if err := json.Unmarshal(raw, &od); err != nil {
		return nil, errors.Wrap(err, "bitmap: parse")
	}
	for _, e := range od.Entries {
		b.entries[e.ID.WithoutVersion().Key()] = e
	}
	b.activeLane = od.ActiveLane
	return b, nil
}

// Lock acquires the exclusive filesystem lock for the whole checkout (§5).
// The returned unlock function must be called on every exit path, including
// errors.
func (b *Bitmap) Lock() (unlock func() error, err error) {
	ok, err := b.lock.TryLockContext(context.Background(), 50*time.Millisecond)
	if err != nil {
		return nil, errors.Wrap(err, "bitmap: acquire lock")
	}
	if !ok {
		return nil, errors.New("bitmap: workspace is locked by another process")
	}
	return b.lock.Unlock, nil
}

// GetBitID returns the tracked id stored for id's scope/name. With
// ignoreVersion the returned id has its Version cleared; otherwise it is the
// id exactly as stored. The Version of the argument is never consulted.
func (b *Bitmap) GetBitID(id common.ComponentID, ignoreVersion bool) (common.ComponentID, bool) {
	e, ok := b.entries[id.WithoutVersion().Key()]
	if !ok {
		return common.ComponentID{}, false
	}
	if ignoreVersion {
		return e.ID.WithoutVersion(), true
	}
	return e.ID, true
}

// Version returns the version currently tracked for id, if any.
func (b *Bitmap) Version(id common.ComponentID) (common.Ref, bool) {
	e, ok := b.entries[id.WithoutVersion().Key()]
	return e.Version, ok
}

// Set records (or replaces) the tracked entry for id.
func (b *Bitmap) Set(e Entry) {
	b.entries[e.ID.WithoutVersion().Key()] = e
}

// Remove drops id from the bitmap.
func (b *Bitmap) Remove(id common.ComponentID) {
	delete(b.entries, id.WithoutVersion().Key())
}

// MakeComponentsAvailableOnMain flips AvailableOnMain for each id, used
// when exiting a lane (§4.7).
func (b *Bitmap) MakeComponentsAvailableOnMain(ids []common.ComponentID) {
	for _, id := range ids {
		key := id.WithoutVersion().Key()
		e, ok := b.entries[key]
		if !ok {
			continue
		}
		e.AvailableOnMain = true
		b.entries[key] = e
	}
}

// ActiveLane returns the current active lane name, or "" if none.
func (b *Bitmap) ActiveLane() string { return b.activeLane }

// SetActiveLane updates the active lane pointer (persisted alongside the
// bitmap — see SPEC_FULL.md's "minimal active lane pointer" supplement).
func (b *Bitmap) SetActiveLane(name string) { b.activeLane = name }

// All returns every tracked entry, for iteration by the checkout engine.
func (b *Bitmap) All() []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	return out
}

// Save persists the bitmap atomically (write-temp, rename) — must be called
// while the lock from Lock is held.
func (b *Bitmap) Save() error {
	od := onDisk{ActiveLane: b.activeLane}
	for _, e := range b.entries {
		od.Entries = append(od.Entries, e)
	}
	raw, err := json.MarshalIndent(od, "", "  ")
	if err != nil {
		return errors.Wrap(err, "bitmap: marshal")
	}
	tmp := b.path + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, raw, 0o644); err != nil {
		return errors.Wrap(err, "bitmap: write temp")
	}
	if err := b.fs.Rename(tmp, b.path); err != nil {
		return errors.Wrap(err, "bitmap: rename")
	}
	return nil
}
