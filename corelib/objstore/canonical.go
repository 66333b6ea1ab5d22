// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.

package objstore

import (
	"bytes"
	"encoding/json"
)

// envelope is the on-disk wrapper around every persisted record. Field order
// is fixed by declaration (encoding/json preserves struct field order, and
// sorts map keys), which is sufficient to make Marshal deterministic for our
// purposes — no hand-rolled canonicalizer needed.
type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// marshalCanonical serializes kind+payload deterministically and appends the
// trailing newline the on-disk format requires (§6).
func marshalCanonical(kind Kind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	// re-marshal through json.Indent-free Marshal again wrapped in the
	// envelope so map-key ordering inside payload is also normalized.
	env := envelope{Kind: kind, Payload: raw}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(out)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func unmarshalEnvelope(b []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(bytes.TrimRight(b, "\n"), &env)
	return env, err
}
