package ports

import (
	"context"
	"folio/internal/types"
)

// ResourceStore persists the documents served by the reference admin API.
// Implementations MUST be safe for concurrent use.
type ResourceStore interface {
	// List returns every document of the resource sorted by "order".
	// An unknown resource yields an empty slice, not an error.
	List(ctx context.Context, resource string) ([]types.Document, error)

	// Get MUST return types.ErrNotFound if the document does not exist.
	Get(ctx context.Context, resource, id string) (types.Document, error)

	// Put creates or replaces a document; the id is read from the document.
	Put(ctx context.Context, resource string, doc types.Document) error

	// Delete MUST return types.ErrNotFound if the document does not exist.
	Delete(ctx context.Context, resource, id string) error

	// Reorder atomically rewrites "order" to the dense sequence 0..n-1 following ids.
	// ids MUST name every stored document of the resource exactly once, otherwise
	// types.ErrInvalidOrder is returned and nothing is written.
	Reorder(ctx context.Context, resource string, ids []string) error

	// ClearAll purges every resource. Used in tests only.
	ClearAll(ctx context.Context) error
}
