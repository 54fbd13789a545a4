package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyAdapter(t *testing.T, conn *fakeConn) *Adapter {
	t.Helper()
	a := newTestAdapter(testConfig(), standaloneProbe(), conn)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestScanPattern_UnionsAllShardOwners(t *testing.T) {
	conn := newFakeConn()
	conn.shards = 3
	a := readyAdapter(t, conn)

	conn.mu.Lock()
	for _, k := range []string{"user:1", "user:2", "user:3", "user:4", "user:5"} {
		conn.hashes[k] = map[string]string{"name": "x"}
	}
	conn.strs["session:1"] = "nope"
	conn.mu.Unlock()

	keys, err := a.ScanPattern(context.Background(), "user:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1", "user:2", "user:3", "user:4", "user:5"}, keys)
}

func TestScanPattern_SkipsFailingOwner(t *testing.T) {
	conn := newFakeConn()
	conn.shards = 2
	a := readyAdapter(t, conn)

	conn.mu.Lock()
	for _, k := range []string{"user:1", "user:2", "user:3", "user:4"} {
		conn.hashes[k] = map[string]string{"name": "x"}
	}
	conn.mu.Unlock()
	// The first owner fails mid-failover; the scan must still return the
	// other owner's keys instead of erroring out.
	conn.failNext("scan", errors.New("LOADING Redis is loading the dataset in memory"))

	keys, err := a.ScanPattern(context.Background(), "user:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:2", "user:4"}, keys)
}

func TestScanPattern_PagesThroughLargeShards(t *testing.T) {
	conn := newFakeConn()
	a := readyAdapter(t, conn)

	conn.mu.Lock()
	for _, k := range []string{"user:a", "user:b", "user:c", "user:d", "user:e", "user:f", "user:g"} {
		conn.hashes[k] = map[string]string{"name": "x"}
	}
	conn.mu.Unlock()

	keys, err := a.ScanPattern(context.Background(), "user:*")
	require.NoError(t, err)
	assert.Len(t, keys, 7)
}

func TestDeleteKey_ReportsMissingKey(t *testing.T) {
	conn := newFakeConn()
	a := readyAdapter(t, conn)

	err := a.DeleteKey(context.Background(), "user:nope")
	assert.Error(t, err)
}

func TestExistsKey(t *testing.T) {
	conn := newFakeConn()
	a := readyAdapter(t, conn)

	require.NoError(t, a.HSetRecord(context.Background(), "user:1", map[string]interface{}{"name": "Ann"}))

	ok, err := a.ExistsKey(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.ExistsKey(context.Background(), "user:2")
	require.NoError(t, err)
	assert.False(t, ok)
}
