package evaluate

import (
	"sort"

	"solana-sniper/internal/domain"
)

// PreRank orders candidates by a cheap no-network heuristic and returns at
// most limit of them. It bounds the per-cycle quote budget: only the best
// few candidates reach the network-gated checks.
func PreRank(candidates []*domain.PoolCandidate, limit int, th Thresholds, nowMs int64) []*domain.PoolCandidate {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	ranked := make([]*domain.PoolCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		return preRankScore(ranked[i], th, nowMs) > preRankScore(ranked[j], th, nowMs)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// preRankScore reuses the freshness and flow components of the full score.
// Route and penalty components need network data and are excluded.
func preRankScore(c *domain.PoolCandidate, th Thresholds, nowMs int64) float64 {
	return freshnessScore(c, th, nowMs) + flowScore(c)
}
