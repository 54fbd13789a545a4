package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const totalSlots = 16384

// topologyStatus is one discovery pass over the configured seeds.
type topologyStatus struct {
	liveSeeds   int
	clusterMode bool
	stateOK     bool
	covered     bool
}

func (t topologyStatus) ready() bool {
	if t.liveSeeds == 0 {
		return false
	}
	if !t.clusterMode {
		return true
	}
	return t.stateOK && t.covered
}

// checkTopology probes every seed: liveness first, then (for cluster-aware
// nodes) reported health and slot-assignment completeness. A seed that does
// not answer PING is skipped, not fatal, as long as one seed is alive.
func (a *Adapter) checkTopology(ctx context.Context) (topologyStatus, error) {
	var status topologyStatus

	for _, addr := range a.cfg.Nodes {
		probe := a.probe(addr)
		err := probe.Ping(ctx).Err()
		if err != nil {
			a.logger.Warn().Str("seed", addr).Err(err).Msg("seed did not answer ping")
			_ = probe.Close()
			continue
		}
		status.liveSeeds++

		info, err := probe.ClusterInfo(ctx).Result()
		if err != nil {
			if isClusterDisabled(err) {
				// Standalone node: the whole key space is one shard.
				_ = probe.Close()
				continue
			}
			a.logger.Warn().Str("seed", addr).Err(err).Msg("cluster info failed")
			_ = probe.Close()
			continue
		}

		status.clusterMode = true
		if clusterStateOK(info) {
			status.stateOK = true
		}

		slots, err := probe.ClusterSlots(ctx).Result()
		_ = probe.Close()
		if err != nil {
			a.logger.Warn().Str("seed", addr).Err(err).Msg("cluster slots failed")
			continue
		}
		if slotsCovered(slots) {
			status.covered = true
		}

		// One authoritative answer is enough; remaining seeds were already
		// counted for liveness on earlier passes or will be on the next one.
		if status.stateOK && status.covered {
			break
		}
	}

	if status.liveSeeds == 0 {
		return status, fmt.Errorf("cluster: no live seed among %v", a.cfg.Nodes)
	}
	return status, nil
}

func isClusterDisabled(err error) bool {
	return err != nil && strings.Contains(err.Error(), "cluster support disabled")
}

// clusterStateOK parses the CLUSTER INFO payload for cluster_state:ok.
func clusterStateOK(info string) bool {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if after, found := strings.CutPrefix(line, "cluster_state:"); found {
			return after == "ok"
		}
	}
	return false
}

// slotsCovered reports whether the union of owned ranges spans every slot
// from 0 to 16383 with at least one live primary per range.
func slotsCovered(slots []redis.ClusterSlot) bool {
	owned := make([]redis.ClusterSlot, 0, len(slots))
	for _, s := range slots {
		if len(s.Nodes) > 0 {
			owned = append(owned, s)
		}
	}
	if len(owned) == 0 {
		return false
	}

	sort.Slice(owned, func(i, j int) bool { return owned[i].Start < owned[j].Start })

	next := 0
	for _, s := range owned {
		if s.Start > next {
			return false
		}
		if s.End >= next {
			next = s.End + 1
		}
	}
	return next >= totalSlots
}
