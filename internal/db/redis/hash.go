package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/refbase-io/refbase/internal/db"
)

// HSetMulti writes multiple hashes in one pipelined round trip.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, 0, len(items))
	for _, item := range items {
		b := s.b().Hset().Key(item.Key).FieldValue()
		for field, value := range item.Fields {
			b = b.FieldValue(field, value)
		}
		cmds = append(cmds, b.Build())
	}

	for i, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %q: %w", items[i].Key, err)}
		}
	}
	return nil
}

// DelMulti deletes keys in one pipelined round trip.
func (s *Store) DelMulti(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, s.b().Del().Key(key).Build())
	}

	for i, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return &db.Error{Op: db.OpDel, Err: fmt.Errorf("key %q: %w", keys[i], err)}
		}
	}
	return nil
}
