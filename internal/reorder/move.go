package reorder

import (
	"fmt"
	"folio/internal/types"
)

// Move removes the element at from and reinserts it at to. The input is not modified.
// All other elements keep their relative order.
func Move[T any](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, fmt.Errorf("%w: move %d -> %d in list of %d", types.ErrInvalidOrder, from, to, len(list))
	}
	out := make([]T, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)
	item := list[from]
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out, nil
}

// IDs returns the identifiers in list order.
func IDs[T types.Entity[T]](list []T) []string {
	ids := make([]string, 0, len(list))
	for _, it := range list {
		ids = append(ids, it.GetID())
	}
	return ids
}

// Densify returns a copy whose order fields are 0..n-1 following list order.
func Densify[T types.Entity[T]](list []T) []T {
	out := make([]T, 0, len(list))
	for i, it := range list {
		out = append(out, it.WithOrder(i))
	}
	return out
}

// IndexOf returns the position of id, or -1.
func IndexOf[T types.Entity[T]](list []T, id string) int {
	for i, it := range list {
		if it.GetID() == id {
			return i
		}
	}
	return -1
}

// ByIDs arranges list to follow ids. ids must be a permutation of the identifiers of list.
func ByIDs[T types.Entity[T]](list []T, ids []string) ([]T, error) {
	if len(ids) != len(list) {
		return nil, fmt.Errorf("%w: %d ids for %d items", types.ErrInvalidOrder, len(ids), len(list))
	}
	byID := make(map[string]T, len(list))
	for _, it := range list {
		byID[it.GetID()] = it
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown or repeated id %q", types.ErrInvalidOrder, id)
		}
		delete(byID, id)
		out = append(out, it)
	}
	return out, nil
}

// RequireVisible refuses to hide or remove id when it is the last visible member of list.
func RequireVisible[T types.Entity[T]](list []T, id string) error {
	target := IndexOf(list, id)
	if target < 0 || !list[target].IsVisible() {
		return nil
	}
	for i, it := range list {
		if i != target && it.IsVisible() {
			return nil
		}
	}
	return types.ErrLastVisible
}
