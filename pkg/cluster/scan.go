package cluster

import (
	"context"
	"sort"
	"sync"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

// ScanPattern enumerates keys matching pattern across every primary shard
// owner, since cluster mode has no single-command key listing. Each owner is
// cursor-scanned independently with a bounded batch size; results are
// unioned and deduplicated. An owner that is not currently ready is skipped
// rather than failing the whole enumeration, so callers must tolerate
// undercounting during a topology transition.
func (a *Adapter) ScanPattern(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := a.Execute(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		keys, err = a.scanConn(ctx, conn, pattern)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (a *Adapter) scanConn(ctx context.Context, conn Conn, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var mu sync.Mutex

	err := conn.ForEachPrimary(ctx, func(ctx context.Context, shard Shard) error {
		var cursor uint64
		for {
			batch, next, err := shard.Scan(ctx, cursor, pattern, a.cfg.ScanBatch).Result()
			if err != nil {
				// Partial results policy: a shard owner mid-failover is
				// skipped, the remaining owners still contribute.
				a.logger.Warn().Err(err).Msg("shard scan failed, skipping owner")
				return nil
			}
			mu.Lock()
			for _, k := range batch {
				seen[k] = struct{}{}
			}
			mu.Unlock()
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// HSetRecord writes hash fields through the retry contract.
func (a *Adapter) HSetRecord(ctx context.Context, key string, fields map[string]interface{}) error {
	return a.Execute(ctx, func(ctx context.Context, conn Conn) error {
		args := make([]interface{}, 0, len(fields)*2)
		for k, v := range fields {
			args = append(args, k, v)
		}
		return conn.HSet(ctx, key, args...).Err()
	})
}

// HGetAllRecord reads a whole hash. A missing key yields an empty map, as
// Redis itself does.
func (a *Adapter) HGetAllRecord(ctx context.Context, key string) (map[string]string, error) {
	var fields map[string]string
	err := a.Execute(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		fields, err = conn.HGetAll(ctx, key).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// ExistsKey reports key presence.
func (a *Adapter) ExistsKey(ctx context.Context, key string) (bool, error) {
	var n int64
	err := a.Execute(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		n, err = conn.Exists(ctx, key).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteKey removes a key, reporting storage.ErrNotFound when nothing was
// deleted.
func (a *Adapter) DeleteKey(ctx context.Context, key string) error {
	var n int64
	err := a.Execute(ctx, func(ctx context.Context, conn Conn) error {
		var err error
		n, err = conn.Del(ctx, key).Result()
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
