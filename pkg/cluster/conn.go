package cluster

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/config"
)

// Conn is the narrow command surface the adapter executes against. Both the
// cluster client and the single-node client satisfy it; tests use a fake.
type Conn interface {
	Ping(ctx context.Context) *redis.StatusCmd
	ClusterInfo(ctx context.Context) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd

	// ForEachPrimary visits every primary shard owner. The callback must
	// tolerate being called concurrently.
	ForEachPrimary(ctx context.Context, fn func(ctx context.Context, shard Shard) error) error

	Close() error
}

// Shard is one primary owner, scannable on its own cursor.
type Shard interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// probeConn is the short-lived per-seed connection used during discovery.
// *redis.Client satisfies it directly.
type probeConn interface {
	Ping(ctx context.Context) *redis.StatusCmd
	ClusterInfo(ctx context.Context) *redis.StringCmd
	ClusterSlots(ctx context.Context) *redis.ClusterSlotsCmd
	Close() error
}

type clusterConn struct {
	*redis.ClusterClient
}

func (c clusterConn) ForEachPrimary(ctx context.Context, fn func(ctx context.Context, shard Shard) error) error {
	return c.ClusterClient.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
		return fn(ctx, client)
	})
}

type singleConn struct {
	*redis.Client
}

func (c singleConn) ForEachPrimary(ctx context.Context, fn func(ctx context.Context, shard Shard) error) error {
	return fn(ctx, c.Client)
}

func tlsConfig(cfg config.RedisConfig) *tls.Config {
	if !cfg.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// dialConn opens the long-lived connection: a cluster client for a multi-seed
// topology, a plain client for the one-endpoint case. The go-redis cluster
// client follows MOVED redirects internally; what it cannot absorb surfaces
// to the adapter's retry loop.
func dialConn(cfg config.RedisConfig, clusterMode bool) Conn {
	if clusterMode {
		return clusterConn{redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Nodes,
			Password:     cfg.Password,
			TLSConfig:    tlsConfig(cfg),
			DialTimeout:  cfg.OpTimeout,
			ReadTimeout:  cfg.OpTimeout,
			WriteTimeout: cfg.OpTimeout,
		})}
	}
	return singleConn{redis.NewClient(&redis.Options{
		Addr:         cfg.Nodes[0],
		Password:     cfg.Password,
		TLSConfig:    tlsConfig(cfg),
		DialTimeout:  cfg.OpTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})}
}

// dialProbe opens a short-lived probe against one seed.
func dialProbe(cfg config.RedisConfig, addr string) probeConn {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		TLSConfig:   tlsConfig(cfg),
		DialTimeout: cfg.OpTimeout,
		ReadTimeout: cfg.OpTimeout,
	})
}
