package scanner

import (
	"time"

	"solana-copydesk/internal/domain"
)

// PresenceGrace is how long a token stays in the presence set after its
// last sighting before it is evicted.
const PresenceGrace = 5 * time.Minute

// PresenceSet maps mint to its observed presence across scans. Merging and
// eviction build new maps; a PresenceSet is never mutated in place, so a
// previous tick's set stays valid while the next tick computes its own.
type PresenceSet map[string]domain.TokenPresence

// MergePresence folds the mints seen in one scan into the previous set.
func MergePresence(prev PresenceSet, mints []string, now time.Time) PresenceSet {
	next := make(PresenceSet, len(prev)+len(mints))
	for mint, p := range prev {
		next[mint] = p
	}
	nowMs := now.UnixMilli()
	for _, mint := range mints {
		p, ok := next[mint]
		if !ok {
			p = domain.TokenPresence{TokenMint: mint}
		}
		p.LastSeenAt = nowMs
		p.ScanCount++
		next[mint] = p
	}
	return next
}

// EvictStale filters out tokens not seen within the grace period.
func EvictStale(set PresenceSet, now time.Time, grace time.Duration) PresenceSet {
	cutoff := now.Add(-grace).UnixMilli()
	next := make(PresenceSet, len(set))
	for mint, p := range set {
		if p.LastSeenAt >= cutoff {
			next[mint] = p
		}
	}
	return next
}
