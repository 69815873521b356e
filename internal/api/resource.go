package api

import (
	"context"
	"folio/internal/types"
	"net/http"
	"net/url"
)

// Resource is a typed view of one REST collection following the admin API conventions.
type Resource[T any] struct {
	c    *Client
	name string
}

func NewResource[T any](c *Client, name string) Resource[T] {
	return Resource[T]{c: c, name: name}
}

func (r Resource[T]) Name() string { return r.name }

// List returns the collection; where is an optional JMESPath filter evaluated per item
// by the server.
func (r Resource[T]) List(ctx context.Context, where string) ([]T, error) {
	path := "/" + r.name
	if where != "" {
		path += "?where=" + url.QueryEscape(where)
	}
	var out []T
	if err := r.c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodGet, r.itemPath(id), nil, &out)
	return out, err
}

func (r Resource[T]) Create(ctx context.Context, v T) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodPost, "/"+r.name, v, &out)
	return out, err
}

func (r Resource[T]) Update(ctx context.Context, id string, v T) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodPut, r.itemPath(id), v, &out)
	return out, err
}

func (r Resource[T]) ToggleVisibility(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.Do(ctx, http.MethodPatch, r.itemPath(id)+"/visibility", nil, &out)
	return out, err
}

// Reorder replaces the full order of the collection with ids.
func (r Resource[T]) Reorder(ctx context.Context, ids []string) error {
	var out types.SuccessResponse
	if err := r.c.Do(ctx, http.MethodPatch, "/"+r.name+"/reorder", types.NewReorderRequest(ids), &out); err != nil {
		return err
	}
	if !out.Success {
		return types.NewAPIError(http.StatusOK, "reorder_rejected", "the server did not accept the new order")
	}
	return nil
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	var out types.SuccessResponse
	if err := r.c.Do(ctx, http.MethodDelete, r.itemPath(id), nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return types.NewAPIError(http.StatusOK, "delete_rejected", "the server did not delete the item")
	}
	return nil
}

func (r Resource[T]) itemPath(id string) string {
	return "/" + r.name + "/" + url.PathEscape(id)
}

// Singleton is a resource with exactly one document, such as the profile.
type Singleton[T any] struct {
	c    *Client
	name string
}

func NewSingleton[T any](c *Client, name string) Singleton[T] {
	return Singleton[T]{c: c, name: name}
}

func (s Singleton[T]) Name() string { return s.name }

func (s Singleton[T]) Get(ctx context.Context) (T, error) {
	var out T
	err := s.c.Do(ctx, http.MethodGet, "/"+s.name, nil, &out)
	return out, err
}

func (s Singleton[T]) Update(ctx context.Context, v T) (T, error) {
	var out T
	err := s.c.Do(ctx, http.MethodPut, "/"+s.name, v, &out)
	return out, err
}
