package aggregate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carepath/carepath/internal/model"
)

// Channel is the outcome of one external place fetch, keyed by the supply
// tier it serves. A failed or canceled fetch must be handed in as an empty
// channel; the aggregator cannot tell the difference and does not need to.
type Channel struct {
	Tier       model.SourceTier
	Candidates []model.Candidate
}

// Result is the merged candidate pool for a turn
type Result struct {
	Candidates []model.Candidate

	// EmergencyFresh is set when a live emergency channel contributed
	// results. On a HIGH turn the caller uses it to skip weighted ranking
	// in favor of plain distance order.
	EmergencyFresh bool
}

// Merge combines the curated baseline with live channel results. A non-empty
// channel replaces every baseline candidate of its tier outright: half-fresh
// mixes of live and stale data for the same tier are worse than either
// alone. Empty channels leave their tier's baseline untouched, so losing an
// upstream never empties the pool.
//
// Channel candidates are re-identified under a per-tier namespace to keep
// live ids from colliding with baseline ids. Output order is deterministic:
// channel results in the order given, then surviving baseline entries in
// their original order.
func Merge(baseline []model.Candidate, channels []Channel) Result {
	var result Result

	replaced := make(map[model.SourceTier]bool, len(channels))
	for _, ch := range channels {
		if len(ch.Candidates) == 0 {
			continue
		}
		replaced[ch.Tier] = true
		if ch.Tier == model.SourceEmergency {
			result.EmergencyFresh = true
		}
		for i, c := range ch.Candidates {
			c.Source = ch.Tier
			c.ID = channelID(ch.Tier, i)
			result.Candidates = append(result.Candidates, c)
		}
	}

	for _, c := range baseline {
		if replaced[c.Source] {
			continue
		}
		result.Candidates = append(result.Candidates, c)
	}

	return result
}

// channelID builds a collision-free id for a live result. The uuid fragment
// keeps ids unique across turns even when upstreams return unstable or
// missing identifiers.
func channelID(tier model.SourceTier, index int) string {
	return fmt.Sprintf("%s-%d-%s", strings.ToLower(string(tier)), index, uuid.New().String()[:8])
}
