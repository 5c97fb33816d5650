package safemode

import (
	"strings"

	"github.com/carepath/carepath/internal/model"
)

// Gate is the HIGH-tier category filter. When a turn classifies as HIGH the
// gate removes every candidate that is not a plausible emergency
// destination, so a pharmacy can never outrank an emergency room on a
// life-threatening turn. The deny list always wins: an excluded category is
// dropped even when the place is flagged emergency-capable.
type Gate struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

// NewGate creates a gate from allow/deny category lists
func NewGate(allowed, excluded []string) *Gate {
	g := &Gate{
		allow: make(map[string]struct{}, len(allowed)),
		deny:  make(map[string]struct{}, len(excluded)),
	}
	for _, c := range allowed {
		g.allow[normalizeCategory(c)] = struct{}{}
	}
	for _, c := range excluded {
		g.deny[normalizeCategory(c)] = struct{}{}
	}
	return g
}

// Filter applies the gate for the given tier. For MODERATE and LOW turns the
// candidates pass through untouched. For HIGH turns only allow-listed
// categories and emergency-capable places survive; noResult reports that the
// gate eliminated every candidate, which the caller must surface rather than
// relax the filter.
func (g *Gate) Filter(tier model.UrgencyTier, candidates []model.Candidate) (filtered []model.Candidate, noResult bool) {
	if tier != model.TierHigh {
		return candidates, false
	}

	filtered = make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if g.admits(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered, len(filtered) == 0
}

func (g *Gate) admits(c model.Candidate) bool {
	category := normalizeCategory(c.Category)
	if _, denied := g.deny[category]; denied {
		return false
	}
	if _, allowed := g.allow[category]; allowed {
		return true
	}
	return c.EmergencyCapable
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
