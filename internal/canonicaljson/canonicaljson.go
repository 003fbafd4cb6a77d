// Package canonicaljson produces a deterministic, sorted-key, compact
// JSON encoding. It backs every place in the engine that signs or
// authenticates a JSON structure: AEAD additional data and ROC
// signing bytes both need two independent encoders of the same value
// to always produce byte-identical output.
//
// No third-party canonical-JSON encoder appears anywhere in the
// example corpus; encoding/json already guarantees map keys are
// written in sorted order, so marshaling through a map (rather than a
// struct, whose field order would depend on declaration order) gives
// a canonical encoding for free without a bespoke library.
package canonicaljson

import (
	"bytes"
	"encoding/json"
)

// Marshal encodes v with map keys in sorted order and no extraneous
// whitespace. v is typically a map[string]any or anything that
// marshals to a JSON object.
func Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// encoding/json already sorts map[string]X keys; Compact collapses
	// any whitespace a struct-based caller might have introduced.
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
