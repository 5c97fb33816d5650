package rank

import (
	"math"
	"sort"

	"github.com/carepath/carepath/internal/model"
)

// Scoring constants. Ranking is a bounded, auditable computation: every
// adjustment below is visible in the final score, and nothing else
// contributes.
const (
	openBonus        = 15.0 // Place is verifiably open right now
	closedPenalty    = 10.0 // Place is verifiably closed
	proximityBonus   = 10.0 // Walkable OTC outlet on a LOW turn
	proximityLimitKm = 0.5
	distanceBase     = 20.0
	distanceDecay    = 4.0 // Points lost per kilometer
	topN             = 5
)

// sourceWeight maps (urgency tier, supply channel) to the dominant score
// component. The table is the policy: HIGH zeroes out retail channels
// entirely, MODERATE favors pharmacies but keeps emergency rooms close
// behind, LOW favors the cheapest adequate option.
var sourceWeight = map[model.UrgencyTier]map[model.SourceTier]float64{
	model.TierHigh: {
		model.SourceEmergency: 80,
		model.SourceGeneral:   50,
		model.SourcePharmacy:  0,
		model.SourceOTCStore:  0,
	},
	model.TierModerate: {
		model.SourcePharmacy:  50,
		model.SourceEmergency: 40,
		model.SourceGeneral:   35,
		model.SourceOTCStore:  5,
	},
	model.TierLow: {
		model.SourceOTCStore:  50,
		model.SourcePharmacy:  30,
		model.SourceEmergency: 10,
		model.SourceGeneral:   10,
	},
}

// primarySource names the channel whose members explain their rank as a
// tier match; it is the highest-weighted channel for each tier.
var primarySource = map[model.UrgencyTier]model.SourceTier{
	model.TierHigh:     model.SourceEmergency,
	model.TierModerate: model.SourcePharmacy,
	model.TierLow:      model.SourceOTCStore,
}

// Engine ranks candidates for a triaged turn
type Engine struct{}

// NewEngine creates a ranking engine
func NewEngine() *Engine {
	return &Engine{}
}

// Rank scores every candidate for the tier, sorts by descending score, and
// returns at most five entries. The sort is stable, so equal scores keep
// their input order and the result is deterministic for identical input.
//
// An unset tier degrades to a pure distance ordering with no tier-aware
// scoring at all.
func (e *Engine) Rank(tier model.UrgencyTier, candidates []model.Candidate) []model.RankedCandidate {
	if tier.Rank() == 0 {
		return e.nearest(candidates)
	}

	ranked := make([]model.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = model.RankedCandidate{
			Candidate: c,
			Score:     round3(e.score(tier, c)),
			Reason:    e.reason(tier, c),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return truncate(ranked)
}

// Bypass orders fresh emergency results by ascending distance without
// weighted scoring. Live government ER data is already the right answer set
// on a HIGH turn; re-scoring it could only demote the nearest open door.
// The first entry explains itself as the tier match, the rest as open or
// nearby.
func (e *Engine) Bypass(candidates []model.Candidate) []model.RankedCandidate {
	ranked := byDistance(candidates)
	for i := range ranked {
		switch {
		case i == 0:
			ranked[i].Reason = model.ReasonTierMatch
		case ranked[i].Open == model.OpenStateOpen:
			ranked[i].Reason = model.ReasonOpenNow
		default:
			ranked[i].Reason = model.ReasonNearby
		}
	}
	return truncate(ranked)
}

// nearest is the unset-tier fallback: ascending distance, all tagged nearby.
func (e *Engine) nearest(candidates []model.Candidate) []model.RankedCandidate {
	ranked := byDistance(candidates)
	for i := range ranked {
		ranked[i].Reason = model.ReasonNearby
	}
	return truncate(ranked)
}

func (e *Engine) score(tier model.UrgencyTier, c model.Candidate) float64 {
	s := sourceWeight[tier][c.Source]

	if tier == model.TierLow && c.Source == model.SourceOTCStore && c.DistanceKm <= proximityLimitKm {
		s += proximityBonus
	}

	switch c.Open {
	case model.OpenStateOpen:
		s += openBonus
	case model.OpenStateClosed:
		s -= closedPenalty
	}

	return s + distanceScore(c.DistanceKm)
}

// reason picks the single dominant explanation in fixed priority order:
// tier match, then verified open, then proximity.
func (e *Engine) reason(tier model.UrgencyTier, c model.Candidate) model.RankReason {
	if c.Source == primarySource[tier] {
		return model.ReasonTierMatch
	}
	if c.Open == model.OpenStateOpen {
		return model.ReasonOpenNow
	}
	return model.ReasonNearby
}

func distanceScore(km float64) float64 {
	return math.Max(0, distanceBase-km*distanceDecay)
}

func byDistance(candidates []model.Candidate) []model.RankedCandidate {
	ranked := make([]model.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = model.RankedCandidate{
			Candidate: c,
			Score:     round3(distanceScore(c.DistanceKm)),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

func truncate(ranked []model.RankedCandidate) []model.RankedCandidate {
	if len(ranked) > topN {
		return ranked[:topN]
	}
	return ranked
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
