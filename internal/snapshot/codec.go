package snapshot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// ErrSchemaMismatch is returned when a captured document shares no usable
// fields with the live schema it is being decoded against.
var ErrSchemaMismatch = errors.New("snapshot: no fields in document match the current schema")

// Document is a field-keyed capture of an entity's state at a point in time.
// Values hold whatever JSON produced: strings, float64, bool, nil, nested
// maps/slices.
type Document map[string]any

// Encode converts an arbitrary entity record into a Document by round-tripping
// it through JSON. The record's json tags decide the field names, so the same
// names come back out of Decode at undo time.
func Encode(record any) (Document, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("snapshot encode: %w", err)
	}
	return FromJSON(data)
}

// FromJSON parses raw JSON (e.g. a JSONB column) into a Document.
func FromJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return doc, nil
}

// ToJSON renders the document for JSONB storage.
func (d Document) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}

// DecodeInto reconstructs a typed record from the document, again via the
// json tags used by Encode.
func (d Document) DecodeInto(target any) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("snapshot decode: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("snapshot decode: %w", err)
	}
	return nil
}

// Keys returns the field names in deterministic (sorted) order, so statements
// built from a document are stable across runs.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Intersect returns a copy of the document restricted to fields that exist in
// the given column set. Fields captured under an older schema are dropped
// rather than failing the whole decode; if nothing survives the intersection
// the document is unusable and ErrSchemaMismatch is returned.
func Intersect(doc Document, columns map[string]struct{}) (Document, error) {
	out := make(Document, len(doc))
	for k, v := range doc {
		if _, ok := columns[k]; ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil, ErrSchemaMismatch
	}
	return out, nil
}
