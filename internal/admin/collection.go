package admin

import (
	"context"
	"fmt"
	"folio/internal/api"
	"folio/internal/mutation"
	"folio/internal/query"
	"folio/internal/reorder"
	"folio/internal/types"
	"sort"
)

// View is the typed state of a collection as the UI renders it.
type View[T any] struct {
	Items    []T
	Status   query.Status
	Err      error
	Fetching bool
}

// Row is an untyped summary of one item, used by the CLI.
type Row struct {
	ID      string
	Order   int
	Visible bool
	Label   string
}

// Manager is the non-generic surface of a collection.
type Manager interface {
	Name() string
	Key() query.Key
	Rows(ctx context.Context) ([]Row, error)
	FilteredRows(ctx context.Context, where string) ([]Row, error)
	MoveID(ctx context.Context, id string, to int) (mutation.Result, error)
	Reorder(ctx context.Context, ids []string) (mutation.Result, error)
	ToggleVisibility(ctx context.Context, id string) (mutation.Result, error)
	Delete(ctx context.Context, id string) (mutation.Result, error)
}

// Collection binds one orderable resource to the query store and the mutation controller.
type Collection[T types.Entity[T]] struct {
	res            api.Resource[T]
	store          *query.Store
	ctrl           *mutation.Controller
	key            query.Key
	label          func(T) string
	requireVisible bool
}

func NewCollection[T types.Entity[T]](c *api.Client, store *query.Store, ctrl *mutation.Controller, name string, label func(T) string) *Collection[T] {
	return &Collection[T]{
		res:            api.NewResource[T](c, name),
		store:          store,
		ctrl:           ctrl,
		key:            query.NewKey(name),
		label:          label,
		requireVisible: types.RequiresVisible(name),
	}
}

func (c *Collection[T]) Name() string   { return c.res.Name() }
func (c *Collection[T]) Key() query.Key { return c.key }

func (c *Collection[T]) fetcher(where string) query.FetchFunc {
	return func(ctx context.Context) (any, error) {
		list, err := c.res.List(ctx, where)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].GetOrder() < list[j].GetOrder() })
		return list, nil
	}
}

// Read returns what is cached right now and revalidates in the background when needed.
func (c *Collection[T]) Read() View[T] {
	st := c.store.Read(c.key, c.fetcher(""))
	return View[T]{
		Items:    asList[T](st.Value),
		Status:   st.Status,
		Err:      st.Err,
		Fetching: st.Fetching,
	}
}

// List returns a fresh list, fetching when the cache is absent, stale or invalidated.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	v, err := c.store.Fetch(ctx, c.key, c.fetcher(""))
	if err != nil {
		return nil, err
	}
	return asList[T](v), nil
}

// Filtered lists the items matching a JMESPath expression, cached under its own key.
func (c *Collection[T]) Filtered(ctx context.Context, where string) ([]T, error) {
	v, err := c.store.Fetch(ctx, query.NewKey(c.Name(), where), c.fetcher(where))
	if err != nil {
		return nil, err
	}
	return asList[T](v), nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	return c.res.Get(ctx, id)
}

func (c *Collection[T]) Rows(ctx context.Context) ([]Row, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return c.rows(list), nil
}

func (c *Collection[T]) FilteredRows(ctx context.Context, where string) ([]Row, error) {
	list, err := c.Filtered(ctx, where)
	if err != nil {
		return nil, err
	}
	return c.rows(list), nil
}

func (c *Collection[T]) rows(list []T) []Row {
	rows := make([]Row, 0, len(list))
	for _, it := range list {
		r := Row{ID: it.GetID(), Order: it.GetOrder(), Visible: it.IsVisible()}
		if c.label != nil {
			r.Label = c.label(it)
		}
		rows = append(rows, r)
	}
	return rows
}

// Move drags the item at from to position to. The cache shows the new order at once and
// the server receives the complete id list.
func (c *Collection[T]) Move(ctx context.Context, from, to int) (mutation.Result, error) {
	if from == to {
		return mutation.Result{Outcome: mutation.Idle}, nil
	}
	return c.reorder(ctx, func(list []T) ([]T, error) {
		return reorder.Move(list, from, to)
	})
}

// MoveID moves the item with id to position to.
func (c *Collection[T]) MoveID(ctx context.Context, id string, to int) (mutation.Result, error) {
	list, err := c.List(ctx)
	if err != nil {
		return mutation.Result{}, err
	}
	from := reorder.IndexOf(list, id)
	if from < 0 {
		return mutation.Result{}, fmt.Errorf("%s %q: %w", c.Name(), id, types.ErrNotFound)
	}
	return c.Move(ctx, from, to)
}

// Reorder applies a complete order, e.g. the result of a drag gesture.
func (c *Collection[T]) Reorder(ctx context.Context, ids []string) (mutation.Result, error) {
	return c.reorder(ctx, func(list []T) ([]T, error) {
		return reorder.ByIDs(list, ids)
	})
}

func (c *Collection[T]) reorder(ctx context.Context, arrange func([]T) ([]T, error)) (mutation.Result, error) {
	list, err := c.List(ctx)
	if err != nil {
		return mutation.Result{}, err
	}
	if _, err := arrange(list); err != nil {
		return mutation.Result{Outcome: mutation.Idle}, err
	}
	var ids []string
	var arrangeErr error
	res, err := c.ctrl.Mutate(ctx, c.key,
		func(ctx context.Context) error {
			if arrangeErr != nil {
				return arrangeErr
			}
			return c.res.Reorder(ctx, ids)
		},
		func(current any) any {
			next, err := arrange(asList[T](current))
			if err != nil {
				arrangeErr = err
				return current
			}
			ids = reorder.IDs(next)
			return reorder.Densify(next)
		},
	)
	if err == nil {
		c.store.InvalidateResource(c.Name())
	}
	return res, err
}

// ToggleVisibility flips the visibility of id optimistically. Hiding the last visible
// item of a collection that requires one fails with types.ErrLastVisible before anything
// is sent.
func (c *Collection[T]) ToggleVisibility(ctx context.Context, id string) (mutation.Result, error) {
	return c.update(ctx, id, func(list []T, i int) ([]T, error) {
		out := make([]T, len(list))
		copy(out, list)
		out[i] = list[i].WithVisible(!list[i].IsVisible())
		return out, nil
	}, func(ctx context.Context) error {
		_, err := c.res.ToggleVisibility(ctx, id)
		return err
	})
}

// Delete removes id optimistically, with the same visibility guard as ToggleVisibility.
func (c *Collection[T]) Delete(ctx context.Context, id string) (mutation.Result, error) {
	return c.update(ctx, id, func(list []T, i int) ([]T, error) {
		out := make([]T, 0, len(list)-1)
		out = append(out, list[:i]...)
		return append(out, list[i+1:]...), nil
	}, func(ctx context.Context) error {
		return c.res.Delete(ctx, id)
	})
}

func (c *Collection[T]) update(ctx context.Context, id string, apply func([]T, int) ([]T, error), call mutation.ServerCall) (mutation.Result, error) {
	list, err := c.List(ctx)
	if err != nil {
		return mutation.Result{}, err
	}
	if err := c.guard(list, id); err != nil {
		return mutation.Result{Outcome: mutation.Idle}, err
	}

	var applyErr error
	res, err := c.ctrl.Mutate(ctx, c.key,
		func(ctx context.Context) error {
			if applyErr != nil {
				return applyErr
			}
			return call(ctx)
		},
		func(current any) any {
			list := asList[T](current)
			if err := c.guard(list, id); err != nil {
				applyErr = err
				return current
			}
			next, err := apply(list, reorder.IndexOf(list, id))
			if err != nil {
				applyErr = err
				return current
			}
			return next
		},
	)
	if err == nil {
		c.store.InvalidateResource(c.Name())
	}
	return res, err
}

func (c *Collection[T]) guard(list []T, id string) error {
	if reorder.IndexOf(list, id) < 0 {
		return fmt.Errorf("%s %q: %w", c.Name(), id, types.ErrNotFound)
	}
	if c.requireVisible {
		return reorder.RequireVisible(list, id)
	}
	return nil
}

// Create sends a new item and invalidates the collection.
func (c *Collection[T]) Create(ctx context.Context, v T) (T, error) {
	out, err := c.res.Create(ctx, v)
	if err == nil {
		c.store.InvalidateResource(c.Name())
	}
	return out, err
}

// Update replaces an item and invalidates the collection.
func (c *Collection[T]) Update(ctx context.Context, id string, v T) (T, error) {
	out, err := c.res.Update(ctx, id, v)
	if err == nil {
		c.store.InvalidateResource(c.Name())
	}
	return out, err
}

// Locked reports, for a drag gesture over list, which items may not be picked up.
// Nothing is locked unless the collection requires a visible member.
func (c *Collection[T]) Locked(list []T) func(index int) bool {
	return func(index int) bool {
		if !c.requireVisible || index < 0 || index >= len(list) {
			return false
		}
		return reorder.RequireVisible(list, list[index].GetID()) != nil
	}
}

func asList[T any](v any) []T {
	if v == nil {
		return nil
	}
	list, _ := v.([]T)
	return list
}
