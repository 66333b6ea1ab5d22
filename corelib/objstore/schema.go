// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.

package objstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemas holds a compiled validator per Kind, used on Get to turn a
// malformed persisted record into a named Corruption error (§7.6) rather
// than a partial, silently-wrong unmarshal.
var schemas = map[Kind]*jsonschema.Schema{}

func init() {
	for kind, src := range rawSchemas {
		c := jsonschema.NewCompiler()
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(src)))
		if err != nil {
			panic(fmt.Sprintf("objstore: invalid embedded schema for %s: %v", kind, err))
		}
		url := "mem://schemas/" + string(kind) + ".json"
		if err := c.AddResource(url, doc); err != nil {
			panic(fmt.Sprintf("objstore: cannot register schema for %s: %v", kind, err))
		}
		sch, err := c.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("objstore: cannot compile schema for %s: %v", kind, err))
		}
		schemas[kind] = sch
	}
}

// rawSchemas mirrors the JSON shapes fixed by §6 of the spec.
var rawSchemas = map[Kind]string{
	KindLane: `{
		"type": "object",
		"required": ["name", "scope", "components", "hash"],
		"properties": {
			"name": {"type": "string"},
			"scope": {"type": "string"},
			"hash": {"type": "string"},
			"components": {
				"type": ["array", "null"],
				"items": {
					"type": "object",
					"required": ["id", "head"],
					"properties": {
						"head": {"type": "string", "pattern": "^[0-9a-f]{40}$"}
					}
				}
			}
		}
	}`,
	KindVersionHistory: `{
		"type": "object",
		"required": ["name", "scope", "versions"],
		"properties": {
			"name": {"type": "string"},
			"scope": {"type": "string"},
			"versions": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["hash", "parents"],
					"properties": {
						"hash": {"type": "string", "pattern": "^[0-9a-f]{40}$"},
						"parents": {"type": ["array", "null"], "items": {"type": "string"}}
					}
				}
			}
		}
	}`,
}

// validatePayload validates raw payload bytes against kind's schema, if one
// is registered. Kinds without a registered schema (Version, ModelComponent,
// FileTree, Source) skip validation; core/record decodes them with a plain
// json.Unmarshal and checks only that the stored kind matches.
func validatePayload(kind Kind, payload []byte) error {
	sch, ok := schemas[kind]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("%w: %s payload is not valid JSON: %v", ErrCorruptRecord, kind, err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: %s payload failed schema validation: %v", ErrCorruptRecord, kind, err)
	}
	return nil
}
