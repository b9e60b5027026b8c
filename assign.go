package formkit

import (
	"fmt"
	"strings"
)

// ParseFieldName splits a raw form field name into its bracket segments and
// reports whether it ends with the "[]" array marker. Empty segments are
// dropped, so "tags[]" yields ["tags"] and "a[b][c]" yields ["a" "b" "c"].
func ParseFieldName(raw string) (segments []string, isArray bool) {
	segments = strings.FieldsFunc(raw, func(r rune) bool {
		return r == '[' || r == ']'
	})
	return segments, strings.HasSuffix(raw, "[]")
}

// Assign merges v into rec under the path encoded by raw.
//
// Missing intermediate levels are created as empty records. At the last
// segment an array name always produces a list, and a plain name seen a
// second time turns the existing scalar into a list of both values. A name
// whose segments are all empty is ignored.
//
// Descending through a key that does not hold a record, or assigning to a
// key that holds one, fails with ErrFieldConflict.
func Assign(rec *Record, raw string, v Value) error {
	if !v.IsScalar() {
		return &FieldError{Field: raw, Err: fmt.Errorf("%w: cannot assign a %s value", ErrNotSupported, v.kind)}
	}

	keys, isArray := ParseFieldName(raw)
	if len(keys) == 0 {
		return nil
	}

	cur := rec
	for _, key := range keys[:len(keys)-1] {
		existing, ok := cur.values[key]
		if !ok {
			next := NewRecord()
			cur.set(key, Map(next))
			cur = next
			continue
		}
		if existing.kind != KindMap {
			return &FieldError{Field: raw, Err: fmt.Errorf("%w: %q holds a %s", ErrFieldConflict, key, existing.kind)}
		}
		cur = existing.rec
	}

	last := keys[len(keys)-1]
	existing, ok := cur.values[last]
	switch {
	case !ok && isArray:
		cur.set(last, List(v))
	case !ok:
		cur.set(last, v)
	case existing.kind == KindMap:
		return &FieldError{Field: raw, Err: fmt.Errorf("%w: %q holds a map", ErrFieldConflict, last)}
	case existing.kind == KindList:
		existing.list = append(existing.list, v)
		cur.set(last, existing)
	default:
		cur.set(last, List(existing, v))
	}
	return nil
}
