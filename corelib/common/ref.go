// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.
//
// bit-corelib is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package common holds leaf types shared by every package that touches the
// object store: content hashes and component identifiers.
package common

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// RefSize is the byte length of a decoded Ref.
const RefSize = sha1.Size

// ShortRefLen is the number of hex characters shown in a Ref's short form.
// Display only — never used as identity.
const ShortRefLen = 9

// Ref is a 40-character hex content address. Equality is byte-wise.
type Ref string

// EmptyRef is the zero value; never a valid content address.
const EmptyRef Ref = ""

// HashBytes returns the Ref of the given canonical byte form.
func HashBytes(b []byte) Ref {
	sum := sha1.Sum(b)
	return Ref(hex.EncodeToString(sum[:]))
}

// Valid reports whether r looks like a well-formed 40-hex Ref.
func (r Ref) Valid() bool {
	if len(r) != 2*RefSize {
		return false
	}
	_, err := hex.DecodeString(string(r))
	return err == nil
}

// Short returns the first ShortRefLen characters, for display only.
func (r Ref) Short() string {
	if len(r) <= ShortRefLen {
		return string(r)
	}
	return string(r)[:ShortRefLen]
}

func (r Ref) String() string { return string(r) }

// Equal is byte-wise equality.
func (r Ref) Equal(other Ref) bool { return r == other }

// ComponentID identifies a component, optionally pinned to a version.
// Version may be a literal Ref or a tag name — which one it is is resolved
// by the ModelComponent, not by ComponentID itself.
type ComponentID struct {
	Scope   string
	Name    string
	Version string
}

// EqualWithoutVersion reports whether scope+name match, ignoring Version.
func (c ComponentID) EqualWithoutVersion(o ComponentID) bool {
	return c.Scope == o.Scope && c.Name == o.Name
}

// WithoutVersion returns a copy with Version cleared — the canonical key
// used by the workspace Bitmap and by Lane component entries.
func (c ComponentID) WithoutVersion() ComponentID {
	c.Version = ""
	return c
}

// Key returns the "scope/name" string used as a map key wherever a
// without-version identity is needed.
func (c ComponentID) Key() string {
	return fmt.Sprintf("%s/%s", c.Scope, c.Name)
}

func (c ComponentID) String() string {
	if c.Version == "" {
		return c.Key()
	}
	return fmt.Sprintf("%s@%s", c.Key(), c.Version)
}
