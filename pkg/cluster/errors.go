package cluster

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis replies that indicate the shard map moved under the client or the
// cluster is (temporarily) unable to route. Anything else is the caller's
// problem and is never retried here.
var topologyReplies = []string{
	"MOVED",
	"ASK",
	"CLUSTERDOWN",
	"TRYAGAIN",
	"MASTERDOWN",
	"LOADING",
	"READONLY",
}

var transportFragments = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no route to host",
	"i/o timeout",
	"redis: client is closed",
	"redis: connection pool timeout",
}

// isTopologyError classifies an error as a topology/routing failure worth a
// reconnect-and-retry cycle. redis.Nil (key miss) is explicitly not one.
func isTopologyError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, prefix := range topologyReplies {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	for _, frag := range transportFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
