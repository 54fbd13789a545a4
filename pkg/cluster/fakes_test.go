package cluster

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeConn is an in-memory Conn with per-command error injection. Injected
// errors are consumed in order; an empty queue means success.
type fakeConn struct {
	mu       sync.Mutex
	strs     map[string]string
	hashes   map[string]map[string]string
	info     string
	infoErr  error
	errQueue map[string][]error
	pings    int
	shards   int
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		strs:     make(map[string]string),
		hashes:   make(map[string]map[string]string),
		info:     "cluster_state:ok\r\ncluster_slots_assigned:16384",
		errQueue: make(map[string][]error),
		shards:   1,
	}
}

func (f *fakeConn) failNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errQueue[op] = append(f.errQueue[op], errs...)
}

func (f *fakeConn) nextErr(op string) error {
	q := f.errQueue[op]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	f.errQueue[op] = q[1:]
	return err
}

func (f *fakeConn) Ping(ctx context.Context) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if err := f.nextErr("ping"); err != nil {
		return redis.NewStatusResult("", err)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeConn) ClusterInfo(ctx context.Context) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewStringResult(f.info, f.infoErr)
}

func (f *fakeConn) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr("set"); err != nil {
		return redis.NewStatusResult("", err)
	}
	f.strs[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeConn) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr("get"); err != nil {
		return redis.NewStringResult("", err)
	}
	val, ok := f.strs[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeConn) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr("del"); err != nil {
		return redis.NewIntResult(0, err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.strs[key]; ok {
			delete(f.strs, key)
			n++
		}
		if _, ok := f.hashes[key]; ok {
			delete(f.hashes, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeConn) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr("exists"); err != nil {
		return redis.NewIntResult(0, err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.strs[key]; ok {
			n++
		} else if _, ok := f.hashes[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeConn) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr("hset"); err != nil {
		return redis.NewIntResult(0, err)
	}
	h := f.hashes[key]
	if h == nil {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[toString(values[i])] = toString(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func (f *fakeConn) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextErr("hgetall"); err != nil {
		return redis.NewMapStringStringResult(nil, err)
	}
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

// ForEachPrimary deals the key space round-robin across f.shards owners so
// tests exercise the per-owner cursor loop and the union/dedup step.
func (f *fakeConn) ForEachPrimary(ctx context.Context, fn func(ctx context.Context, shard Shard) error) error {
	f.mu.Lock()
	all := make([]string, 0, len(f.strs)+len(f.hashes))
	for k := range f.strs {
		all = append(all, k)
	}
	for k := range f.hashes {
		all = append(all, k)
	}
	sort.Strings(all)
	shards := f.shards
	scanErr := f.nextErr("scan")
	f.mu.Unlock()

	for i := 0; i < shards; i++ {
		keys := make([]string, 0)
		for j, k := range all {
			if j%shards == i {
				keys = append(keys, k)
			}
		}
		var err error
		if i == 0 {
			err = scanErr
		}
		if ferr := fn(ctx, &fakeShard{keys: keys, err: err}); ferr != nil {
			return ferr
		}
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeShard pages two keys at a time to force the cursor loop around.
type fakeShard struct {
	keys []string
	err  error
}

func (s *fakeShard) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	if s.err != nil {
		return redis.NewScanCmdResult(nil, 0, s.err)
	}

	matched := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		if ok, _ := path.Match(match, k); ok {
			matched = append(matched, k)
		}
	}

	const pageSize = 2
	start := int(cursor)
	if start >= len(matched) {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	next := uint64(end)
	if end == len(matched) {
		next = 0
	}
	return redis.NewScanCmdResult(matched[start:end], next, nil)
}

// fakeProbe is one seed's discovery answers.
type fakeProbe struct {
	pingErr  error
	info     string
	infoErr  error
	slots    []redis.ClusterSlot
	slotsErr error
}

func (p *fakeProbe) Ping(ctx context.Context) *redis.StatusCmd {
	if p.pingErr != nil {
		return redis.NewStatusResult("", p.pingErr)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (p *fakeProbe) ClusterInfo(ctx context.Context) *redis.StringCmd {
	return redis.NewStringResult(p.info, p.infoErr)
}

func (p *fakeProbe) ClusterSlots(ctx context.Context) *redis.ClusterSlotsCmd {
	return redis.NewClusterSlotsCmdResult(p.slots, p.slotsErr)
}

func (p *fakeProbe) Close() error { return nil }
