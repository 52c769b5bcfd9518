package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// canonicalIndent is the indentation step used for pretty-printed
// documents.
const canonicalIndent = "  "

// CanonicalJSON re-encodes a JSON document in canonical form: object keys
// sorted recursively at every depth, two-space indentation, no trailing
// whitespace. Numbers are carried through as their original literals, so
// the transform is idempotent: canonicalizing already-canonical input
// yields byte-identical output.
func CanonicalJSON(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON document: trailing data")
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, value, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCanonical renders one value. It is a structural recursion over the
// object/array/scalar shape of the document and does not rely on any
// map-ordering behavior of the encoder.
func writeCanonical(buf *bytes.Buffer, value any, indent string) error {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			buf.WriteString("{}")
			return nil
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		inner := indent + canonicalIndent
		buf.WriteString("{\n")
		for i, k := range keys {
			buf.WriteString(inner)
			encoded, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(encoded)
			buf.WriteString(": ")
			if err := writeCanonical(buf, v[k], inner); err != nil {
				return err
			}
			if i < len(keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent)
		buf.WriteByte('}')
		return nil

	case []any:
		if len(v) == 0 {
			buf.WriteString("[]")
			return nil
		}
		inner := indent + canonicalIndent
		buf.WriteString("[\n")
		for i, elem := range v {
			buf.WriteString(inner)
			if err := writeCanonical(buf, elem, inner); err != nil {
				return err
			}
			if i < len(v)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent)
		buf.WriteByte(']')
		return nil

	case json.Number:
		buf.WriteString(v.String())
		return nil

	default:
		// Strings, booleans, null.
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
}
