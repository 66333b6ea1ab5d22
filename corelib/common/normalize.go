// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.

package common

import "golang.org/x/text/unicode/norm"

// NewComponentID builds a ComponentID, NFC-normalizing scope and name so two
// visually identical identifiers typed on different platforms hash the same
// and collide as the same map key.
func NewComponentID(scope, name, version string) ComponentID {
	return ComponentID{
		Scope:   norm.NFC.String(scope),
		Name:    norm.NFC.String(name),
		Version: version,
	}
}
