package types

import (
	"fmt"
	"sort"
)

// Document is a resource record as the reference server stores it: decoded JSON with the
// conventional "id", "order" and "visible" fields.
type Document map[string]any

func (d Document) ID() string {
	s, _ := d["id"].(string)
	return s
}

// Order reads "order", tolerating the numeric types produced by different decoders.
func (d Document) Order() int {
	switch v := d["order"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Visible defaults to true when the field is absent.
func (d Document) Visible() bool {
	v, ok := d["visible"].(bool)
	if !ok {
		return true
	}
	return v
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// SortDocuments orders docs by "order", then by id so the result is deterministic.
func SortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Order() != docs[j].Order() {
			return docs[i].Order() < docs[j].Order()
		}
		return docs[i].ID() < docs[j].ID()
	})
}

// CheckPermutation verifies that ids names n distinct identifiers, each accepted by
// exists.
func CheckPermutation(n int, ids []string, exists func(id string) bool) error {
	if len(ids) != n {
		return fmt.Errorf("got %d ids for %d documents", len(ids), n)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate id %q", id)
		}
		if !exists(id) {
			return fmt.Errorf("unknown id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
