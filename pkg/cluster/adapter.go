// Package cluster provides the Redis cluster adapter: seed discovery,
// slot-coverage validation, a readiness state machine, retry-on-topology-change
// command execution, and a cross-shard key enumeration primitive.
package cluster

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/config"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/metrics"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

const initAttempts = 3

// Op is one command executed against the live connection.
type Op func(ctx context.Context, conn Conn) error

// Adapter owns the connection to the cluster. It is constructed once at
// startup and handed to consumers by reference; there is no package-level
// connection state.
type Adapter struct {
	cfg     config.RedisConfig
	logger  zerolog.Logger
	metrics metrics.Provider

	// Injection points for tests.
	dial  func(cfg config.RedisConfig, clusterMode bool) Conn
	probe func(addr string) probeConn
	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.RWMutex
	state       State
	conn        Conn
	clusterMode bool

	// reconnectMu makes reconnects single-flight: concurrent failing
	// commands share one rebuild instead of stampeding the cluster.
	reconnectMu sync.Mutex

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

// New builds an adapter in StateUninitialized. Call Init to bring it up.
func New(cfg config.RedisConfig, logger zerolog.Logger, provider metrics.Provider) *Adapter {
	a := &Adapter{
		cfg:     cfg,
		logger:  logger.With().Str("component", "cluster").Logger(),
		metrics: provider,
		dial:    dialConn,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	a.probe = func(addr string) probeConn { return dialProbe(cfg, addr) }
	return a
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Ready reports whether commands are currently accepted.
func (a *Adapter) Ready() bool {
	return a.State() == StateReady
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	a.mu.Unlock()

	if prev != s {
		a.logger.Info().Stringer("from", prev).Stringer("to", s).Msg("state changed")
		_ = a.metrics.Gauge("cluster.state", float64(s), []string{"state:" + s.String()})
	}
}

// Init drives the adapter to StateReady, retrying a bounded number of times
// with increasing delay. Exhaustion leaves the adapter in StateFailed and
// returns the last error; the host process is expected to keep running with
// the adapter reporting unavailable.
func (a *Adapter) Init(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= initAttempts; attempt++ {
		if lastErr = a.becomeReady(ctx); lastErr == nil {
			a.startMonitor()
			return nil
		}
		a.logger.Error().Int("attempt", attempt).Err(lastErr).Msg("initialization attempt failed")
		if attempt < initAttempts {
			if err := a.sleep(ctx, time.Duration(attempt)*a.cfg.RetryBase); err != nil {
				break
			}
		}
	}
	a.setState(StateFailed)
	return fmt.Errorf("cluster: initialization failed: %w", lastErr)
}

// becomeReady is the single awaitable readiness operation: discovery with
// bounded waiting, connection establishment with stability checks, then a
// smoke test. Any failure tears the half-open connection down.
func (a *Adapter) becomeReady(ctx context.Context) error {
	a.setState(StateDiscovering)

	deadline := time.Now().Add(a.cfg.DiscoveryTimeout)
	var status topologyStatus
	for {
		var err error
		status, err = a.checkTopology(ctx)
		if err == nil && status.ready() {
			break
		}
		if err != nil {
			a.logger.Warn().Err(err).Msg("discovery pass failed")
		} else {
			a.logger.Info().
				Int("live_seeds", status.liveSeeds).
				Bool("state_ok", status.stateOK).
				Bool("slots_covered", status.covered).
				Msg("shard assignment incomplete, waiting")
		}
		a.setState(StateWaiting)
		if time.Now().After(deadline) {
			return fmt.Errorf("cluster: shard coverage incomplete after %s", a.cfg.DiscoveryTimeout)
		}
		if err := a.sleep(ctx, a.cfg.DiscoveryInterval); err != nil {
			return err
		}
		a.setState(StateDiscovering)
	}

	a.setState(StateConnecting)
	conn := a.dial(a.cfg, status.clusterMode)

	if err := a.stabilityGate(ctx, conn, deadline); err != nil {
		_ = conn.Close()
		return err
	}
	if err := a.smokeTest(ctx, conn, status.clusterMode); err != nil {
		_ = conn.Close()
		return fmt.Errorf("cluster: smoke test failed: %w", err)
	}

	a.mu.Lock()
	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.conn = conn
	a.clusterMode = status.clusterMode
	a.mu.Unlock()

	a.setState(StateReady)
	return nil
}

// stabilityGate requires StabilityChecks consecutive successful pings spaced
// StabilityInterval apart. A single failure resets the streak, so a
// connection that flaps right after establishing never reaches ready.
func (a *Adapter) stabilityGate(ctx context.Context, conn Conn, deadline time.Time) error {
	streak := 0
	for streak < a.cfg.StabilityChecks {
		if time.Now().After(deadline) {
			return fmt.Errorf("cluster: connection did not stabilize before the discovery deadline")
		}
		pingCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
		err := conn.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.logger.Warn().Err(err).Int("streak", streak).Msg("stability check failed, resetting streak")
			streak = 0
		} else {
			streak++
		}
		if streak < a.cfg.StabilityChecks {
			if err := a.sleep(ctx, a.cfg.StabilityInterval); err != nil {
				return err
			}
		}
	}
	return nil
}

// smokeTest exercises the command paths handlers depend on before the
// adapter accepts traffic: plain set/get, hash set/get, a cross-shard scan,
// and (in cluster mode) a health query.
func (a *Adapter) smokeTest(ctx context.Context, conn Conn, clusterMode bool) error {
	key := "health:smoke:" + uuid.NewString()
	opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
	defer cancel()

	if err := conn.Set(opCtx, key, "ok", time.Minute).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	if val, err := conn.Get(opCtx, key).Result(); err != nil || val != "ok" {
		return fmt.Errorf("get: value %q, err %v", val, err)
	}

	hashKey := key + ":hash"
	if err := conn.HSet(opCtx, hashKey, "probe", "ok").Err(); err != nil {
		return fmt.Errorf("hset: %w", err)
	}
	fields, err := conn.HGetAll(opCtx, hashKey).Result()
	if err != nil || fields["probe"] != "ok" {
		return fmt.Errorf("hgetall: fields %v, err %v", fields, err)
	}
	if err := conn.Del(opCtx, key, hashKey).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}

	if _, err := a.scanConn(opCtx, conn, "health:smoke:*"); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if clusterMode {
		info, err := conn.ClusterInfo(opCtx).Result()
		if err != nil {
			return fmt.Errorf("cluster info: %w", err)
		}
		if !clusterStateOK(info) {
			return fmt.Errorf("cluster info: state not ok")
		}
	}
	return nil
}

// startMonitor runs the health watchdog: a cancellable ticker loop (never
// recursive timers) that degrades the adapter when a probe fails and retries
// the reconnect while degraded. StateFailed is left alone; recovery from
// there is an explicit Reconnect call.
func (a *Adapter) startMonitor() {
	a.mu.Lock()
	if a.monitorCancel != nil {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.monitorCancel = cancel
	a.monitorDone = make(chan struct{})
	done := a.monitorDone
	a.mu.Unlock()

	interval := a.cfg.DiscoveryInterval
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			switch a.State() {
			case StateReady:
				if err := a.healthProbe(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("health probe failed")
					a.degrade()
				}
			case StateDegraded:
				if err := a.Reconnect(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("automatic reconnect failed")
				}
			}
		}
	}()
}

func (a *Adapter) healthProbe(ctx context.Context) error {
	a.mu.RLock()
	conn := a.conn
	clusterMode := a.clusterMode
	a.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("cluster: no connection")
	}

	opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
	defer cancel()
	if err := conn.Ping(opCtx).Err(); err != nil {
		return err
	}
	if clusterMode {
		info, err := conn.ClusterInfo(opCtx).Result()
		if err != nil {
			return err
		}
		if !clusterStateOK(info) {
			return fmt.Errorf("cluster state not ok")
		}
	}
	return nil
}

func (a *Adapter) degrade() {
	a.mu.Lock()
	if a.state == StateReady {
		a.state = StateDegraded
		a.logger.Warn().Msg("state changed from ready to degraded")
		_ = a.metrics.Count("cluster.degraded", 1, nil)
	}
	a.mu.Unlock()
}

// Reconnect rebuilds the connection. It is single-flight: a caller that
// arrives while another reconnect is in progress waits for it and reuses the
// outcome when the adapter came back ready.
func (a *Adapter) Reconnect(ctx context.Context) error {
	a.reconnectMu.Lock()
	defer a.reconnectMu.Unlock()

	if a.State() == StateReady {
		return nil
	}
	_ = a.metrics.Count("cluster.reconnect", 1, nil)
	if err := a.becomeReady(ctx); err != nil {
		a.setState(StateDegraded)
		return err
	}
	a.startMonitor()
	return nil
}

// Execute runs op against the live connection under the retry contract:
// refuse while not ready, retry topology failures through bounded
// reconnect-and-retry cycles with jittered exponential backoff, propagate
// everything else untouched.
func (a *Adapter) Execute(ctx context.Context, op Op) error {
	conn, err := a.readyConn()
	if err != nil {
		return err
	}

	err = a.runOp(ctx, conn, op)
	if err == nil || !isTopologyError(err) {
		return err
	}

	a.logger.Warn().Err(err).Msg("topology error, entering retry cycle")
	a.degrade()
	lastErr := err

	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		if err := a.sleep(ctx, backoff(a.cfg.RetryBase, attempt)); err != nil {
			return fmt.Errorf("cluster: retry aborted: %w", storage.ErrClusterUnavailable)
		}
		_ = a.metrics.Count("cluster.retry", 1, nil)

		if err := a.Reconnect(ctx); err != nil {
			lastErr = err
			continue
		}
		conn, err = a.readyConn()
		if err != nil {
			lastErr = err
			continue
		}

		err = a.runOp(ctx, conn, op)
		if err == nil {
			return nil
		}
		if !isTopologyError(err) {
			return err
		}
		a.logger.Warn().Err(err).Int("attempt", attempt).Msg("retry hit another topology error")
		a.degrade()
		lastErr = err
	}

	return fmt.Errorf("cluster: retries exhausted after %d attempts: %v: %w",
		a.cfg.MaxRetries, lastErr, storage.ErrClusterUnavailable)
}

func (a *Adapter) runOp(ctx context.Context, conn Conn, op Op) error {
	opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
	defer cancel()
	return op(opCtx, conn)
}

func (a *Adapter) readyConn() (Conn, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state != StateReady || a.conn == nil {
		return nil, storage.ErrNotReady
	}
	return a.conn, nil
}

// backoff grows exponentially from base and jitters the result between 50%
// and 150% so concurrent retries spread out.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(d)+1))
}

// Close stops the monitor and releases the connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	cancel := a.monitorCancel
	done := a.monitorDone
	a.monitorCancel = nil
	a.monitorDone = nil
	conn := a.conn
	a.conn = nil
	a.state = StateUninitialized
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
