package redis

import (
	"context"
	"errors"
	"fmt"
	"folio/internal/types"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	docKeyNameTemplate   = "_folio_doc_%s_%s"
	indexKeyNameTemplate = "_folio_idx_%s"

	maxReorderAttempts = 5
)

// Store implements ports.ResourceStore. Each document is a compressed string key and
// every resource keeps a sorted set of its ids scored by order.
type Store struct {
	cli *redis.Client
}

func NewStore(cli *redis.Client) *Store {
	return &Store{cli: cli}
}

func (s *Store) List(ctx context.Context, resource string) ([]types.Document, error) {
	ids, err := s.cli.ZRange(ctx, getIndexKey(resource), 0, -1).Result()
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "list %s", resource)
	}
	if len(ids) == 0 {
		return []types.Document{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, getDocKey(resource, id))
	}
	vals, err := s.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "list %s", resource)
	}
	docs := make([]types.Document, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index entry without document
			log.WithField("key", keys[i]).Warn("dangling index entry")
			continue
		}
		doc, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		docs = append(docs, doc)
	}
	types.SortDocuments(docs)
	return docs, nil
}

func (s *Store) Get(ctx context.Context, resource, id string) (types.Document, error) {
	raw, err := s.cli.Get(ctx, getDocKey(resource, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, types.Err(types.ErrNotFound, nil, "%s/%s", resource, id)
		}
		return nil, types.Err(types.ErrDataStoreAccess, err, "get %s/%s", resource, id)
	}
	return decodeDocument(raw)
}

func (s *Store) Put(ctx context.Context, resource string, doc types.Document) error {
	id := doc.ID()
	if id == "" {
		return types.Err(types.ErrPrecondition, nil, "%s: document without id", resource)
	}
	raw, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	_, err = s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, getDocKey(resource, id), raw, 0)
		pipe.ZAdd(ctx, getIndexKey(resource), redis.Z{Score: float64(doc.Order()), Member: id})
		return nil
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "put %s/%s", resource, id)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, resource, id string) error {
	var removed *redis.IntCmd
	_, err := s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, getDocKey(resource, id))
		pipe.ZRem(ctx, getIndexKey(resource), id)
		return nil
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "delete %s/%s", resource, id)
	}
	if removed.Val() == 0 {
		return types.Err(types.ErrNotFound, nil, "%s/%s", resource, id)
	}
	return nil
}

// Reorder rewrites the documents and the index in one MULTI, retried while another
// writer touches the index.
func (s *Store) Reorder(ctx context.Context, resource string, ids []string) error {
	idx := getIndexKey(resource)
	txf := func(tx *redis.Tx) error {
		current, err := tx.ZRange(ctx, idx, 0, -1).Result()
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(current))
		for _, id := range current {
			known[id] = struct{}{}
		}
		if err := types.CheckPermutation(len(current), ids, func(id string) bool {
			_, ok := known[id]
			return ok
		}); err != nil {
			return types.Err(types.ErrInvalidOrder, err, "%s", resource)
		}

		docs := make([][]byte, len(ids))
		for i, id := range ids {
			raw, err := tx.Get(ctx, getDocKey(resource, id)).Bytes()
			if err != nil {
				return err
			}
			doc, err := decodeDocument(raw)
			if err != nil {
				return err
			}
			doc["order"] = i
			if docs[i], err = encodeDocument(doc); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range ids {
				pipe.Set(ctx, getDocKey(resource, id), docs[i], 0)
				pipe.ZAdd(ctx, idx, redis.Z{Score: float64(i), Member: id})
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxReorderAttempts; attempt++ {
		err := s.cli.Watch(ctx, txf, idx)
		if errors.Is(err, redis.TxFailedErr) {
			log.WithField("resource", resource).Debug("reorder raced, retrying")
			continue
		}
		if err != nil && !errors.Is(err, types.ErrInvalidOrder) {
			return types.Err(types.ErrDataStoreAccess, err, "reorder %s", resource)
		}
		return err
	}
	return types.Err(types.ErrDataStoreAccess, redis.TxFailedErr, "reorder %s", resource)
}

func (s *Store) ClearAll(ctx context.Context) error {
	for _, pattern := range []string{getDocKey("*", "*"), getIndexKey("*")} {
		keys, err := s.cli.Keys(ctx, pattern).Result()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.cli.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}

func getDocKey(resource, id string) string {
	return fmt.Sprintf(docKeyNameTemplate, resource, id)
}

func getIndexKey(resource string) string {
	return fmt.Sprintf(indexKeyNameTemplate, resource)
}
