package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/dealscout/internal/db"
)

// HSetMulti stores multiple hashes in a single DoMulti round-trip.
// Items with a positive TTL get a trailing EXPIRE in the same pipeline.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items)*2)
	keys := make([]string, 0, len(items)*2)
	for _, item := range items {
		cmd := s.b().Hset().Key(item.Key).FieldValue()
		for k, v := range item.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
		keys = append(keys, item.Key)

		if item.TTL > 0 {
			cmds = append(cmds, s.b().Expire().Key(item.Key).Seconds(int64(item.TTL.Seconds())).Build())
			keys = append(keys, item.Key)
		}
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
	}
	return nil
}

