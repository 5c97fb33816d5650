package rank

import (
	"math"
	"testing"

	"github.com/carepath/carepath/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreHighTierEmergencyRoom(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierHigh, []model.Candidate{
		{ID: "er", Source: model.SourceEmergency, Open: model.OpenStateOpen, DistanceKm: 1.0},
	})

	if len(ranked) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(ranked))
	}
	// 80 (source) + 15 (open) + 16 (distance) = 111
	if !almostEqual(ranked[0].Score, 111) {
		t.Errorf("Expected score 111, got %v", ranked[0].Score)
	}
	if ranked[0].Reason != model.ReasonTierMatch {
		t.Errorf("Expected tier-match reason, got %q", ranked[0].Reason)
	}
}

func TestRankHighOrdersEmergencyOverHospital(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierHigh, []model.Candidate{
		{ID: "hospital", Source: model.SourceGeneral, Open: model.OpenStateOpen, DistanceKm: 0.1},
		{ID: "er", Source: model.SourceEmergency, Open: model.OpenStateOpen, DistanceKm: 1.0},
	})

	// The farther ER outranks the closer open hospital
	if ranked[0].ID != "er" {
		t.Fatalf("Expected er first, got %s", ranked[0].ID)
	}
	if !almostEqual(ranked[0].Score, 111) {
		t.Errorf("Expected er score 111, got %v", ranked[0].Score)
	}
	// 50 + 15 + 19.6 = 84.6
	if !almostEqual(ranked[1].Score, 84.6) {
		t.Errorf("Expected hospital score 84.6, got %v", ranked[1].Score)
	}
	if ranked[0].Reason != model.ReasonTierMatch {
		t.Errorf("Expected tier-match reason for er, got %q", ranked[0].Reason)
	}
}

func TestRankLowPrefersOTCOverPharmacy(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierLow, []model.Candidate{
		{ID: "pharmacy", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 0.1},
		{ID: "otc", Source: model.SourceOTCStore, Open: model.OpenStateOpen, DistanceKm: 0.3},
	})

	if ranked[0].ID != "otc" {
		t.Fatalf("Expected otc first, got %s", ranked[0].ID)
	}
	// 50 + 10 + 15 + 18.8 = 93.8
	if !almostEqual(ranked[0].Score, 93.8) {
		t.Errorf("Expected otc score 93.8, got %v", ranked[0].Score)
	}
	// 30 + 15 + 19.6 = 64.6
	if !almostEqual(ranked[1].Score, 64.6) {
		t.Errorf("Expected pharmacy score 64.6, got %v", ranked[1].Score)
	}
}

func TestRankModeratePrefersPharmacyOverHospital(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierModerate, []model.Candidate{
		{ID: "hospital", Source: model.SourceGeneral, Open: model.OpenStateOpen, DistanceKm: 0.1},
		{ID: "pharmacy", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 0.1},
	})

	if ranked[0].ID != "pharmacy" {
		t.Fatalf("Expected pharmacy first, got %s", ranked[0].ID)
	}
	// 50 + 15 + 19.6 = 84.6
	if !almostEqual(ranked[0].Score, 84.6) {
		t.Errorf("Expected pharmacy score 84.6, got %v", ranked[0].Score)
	}
	// 35 + 15 + 19.6 = 69.6
	if !almostEqual(ranked[1].Score, 69.6) {
		t.Errorf("Expected hospital score 69.6, got %v", ranked[1].Score)
	}
	if ranked[0].Reason != model.ReasonTierMatch {
		t.Errorf("Expected tier-match reason for pharmacy, got %q", ranked[0].Reason)
	}
	if ranked[1].Reason != model.ReasonOpenNow {
		t.Errorf("Expected open reason for hospital, got %q", ranked[1].Reason)
	}
}

func TestProximityBoostConditions(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name  string
		tier  model.UrgencyTier
		cand  model.Candidate
		score float64
	}{
		{
			"low tier walkable otc gets boost",
			model.TierLow,
			model.Candidate{Source: model.SourceOTCStore, Open: model.OpenStateOpen, DistanceKm: 0.3},
			50 + 10 + 15 + 18.8,
		},
		{
			"otc beyond half km no boost",
			model.TierLow,
			model.Candidate{Source: model.SourceOTCStore, Open: model.OpenStateOpen, DistanceKm: 0.6},
			50 + 15 + 17.6,
		},
		{
			"boundary half km still boosted",
			model.TierLow,
			model.Candidate{Source: model.SourceOTCStore, Open: model.OpenStateOpen, DistanceKm: 0.5},
			50 + 10 + 15 + 18,
		},
		{
			"walkable pharmacy no boost",
			model.TierLow,
			model.Candidate{Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 0.3},
			30 + 15 + 18.8,
		},
		{
			"moderate tier walkable otc no boost",
			model.TierModerate,
			model.Candidate{Source: model.SourceOTCStore, Open: model.OpenStateOpen, DistanceKm: 0.3},
			5 + 15 + 18.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := e.Rank(tt.tier, []model.Candidate{tt.cand})
			if !almostEqual(ranked[0].Score, tt.score) {
				t.Errorf("Expected score %v, got %v", tt.score, ranked[0].Score)
			}
		})
	}
}

func TestOpenStateAdjustments(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierModerate, []model.Candidate{
		{ID: "open", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 1},
		{ID: "unknown", Source: model.SourcePharmacy, Open: model.OpenStateUnknown, DistanceKm: 1},
		{ID: "closed", Source: model.SourcePharmacy, Open: model.OpenStateClosed, DistanceKm: 1},
	})

	// 50+15+16, 50+16, 50-10+16
	wantOrder := []string{"open", "unknown", "closed"}
	wantScore := []float64{81, 66, 56}
	for i, want := range wantOrder {
		if ranked[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, ranked[i].ID)
		}
		if !almostEqual(ranked[i].Score, wantScore[i]) {
			t.Errorf("Position %d: expected score %v, got %v", i, wantScore[i], ranked[i].Score)
		}
	}
}

func TestDistanceScoreFloorsAtZero(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierLow, []model.Candidate{
		{Source: model.SourceOTCStore, Open: model.OpenStateUnknown, DistanceKm: 12},
	})

	// Distance component is max(0, 20-48): the candidate keeps its source
	// weight and never goes negative on distance alone.
	if !almostEqual(ranked[0].Score, 50) {
		t.Errorf("Expected score 50, got %v", ranked[0].Score)
	}
}

func TestRankTruncatesToFive(t *testing.T) {
	e := NewEngine()

	var candidates []model.Candidate
	for i := 0; i < 9; i++ {
		candidates = append(candidates, model.Candidate{
			ID:         string(rune('a' + i)),
			Source:     model.SourcePharmacy,
			Open:       model.OpenStateUnknown,
			DistanceKm: float64(i),
		})
	}

	ranked := e.Rank(model.TierModerate, candidates)

	if len(ranked) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Errorf("Scores not descending at %d: %v < %v", i, ranked[i-1].Score, ranked[i].Score)
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank(model.TierModerate, []model.Candidate{
		{ID: "first", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 1},
		{ID: "second", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 1},
	})

	if ranked[0].ID != "first" || ranked[1].ID != "second" {
		t.Errorf("Expected input order preserved on tie, got %s then %s", ranked[0].ID, ranked[1].ID)
	}
}

func TestRankIdempotentOnTopFive(t *testing.T) {
	e := NewEngine()

	candidates := []model.Candidate{
		{ID: "a", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 0.2},
		{ID: "b", Source: model.SourceGeneral, Open: model.OpenStateUnknown, DistanceKm: 1.1},
		{ID: "c", Source: model.SourceEmergency, Open: model.OpenStateOpen, DistanceKm: 2.4},
		{ID: "d", Source: model.SourceOTCStore, Open: model.OpenStateClosed, DistanceKm: 0.4},
		{ID: "e", Source: model.SourcePharmacy, Open: model.OpenStateUnknown, DistanceKm: 3.0},
		{ID: "f", Source: model.SourceGeneral, Open: model.OpenStateOpen, DistanceKm: 0.9},
	}

	first := e.Rank(model.TierModerate, candidates)

	top := make([]model.Candidate, len(first))
	for i, rc := range first {
		top[i] = rc.Candidate
	}
	second := e.Rank(model.TierModerate, top)

	if len(first) != len(second) {
		t.Fatalf("Expected same length, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Position %d: expected %s, got %s", i, first[i].ID, second[i].ID)
		}
		if !almostEqual(first[i].Score, second[i].Score) {
			t.Errorf("Position %d: expected score %v, got %v", i, first[i].Score, second[i].Score)
		}
	}
}

func TestRankUnsetTierFallsBackToDistance(t *testing.T) {
	e := NewEngine()

	ranked := e.Rank("", []model.Candidate{
		{ID: "far", Source: model.SourceEmergency, Open: model.OpenStateOpen, DistanceKm: 4},
		{ID: "near", Source: model.SourceOTCStore, Open: model.OpenStateClosed, DistanceKm: 0.2},
		{ID: "mid", Source: model.SourcePharmacy, Open: model.OpenStateOpen, DistanceKm: 1.5},
	})

	wantOrder := []string{"near", "mid", "far"}
	for i, want := range wantOrder {
		if ranked[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, ranked[i].ID)
		}
		if ranked[i].Reason != model.ReasonNearby {
			t.Errorf("Position %d: expected nearby reason, got %q", i, ranked[i].Reason)
		}
	}
}

func TestBypassOrdersByDistance(t *testing.T) {
	e := NewEngine()

	ranked := e.Bypass([]model.Candidate{
		{ID: "b", Source: model.SourceEmergency, Open: model.OpenStateOpen, DistanceKm: 2.0},
		{ID: "a", Source: model.SourceEmergency, Open: model.OpenStateUnknown, DistanceKm: 0.8},
		{ID: "c", Source: model.SourceEmergency, Open: model.OpenStateUnknown, DistanceKm: 3.1},
	})

	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if ranked[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, ranked[i].ID)
		}
	}

	if ranked[0].Reason != model.ReasonTierMatch {
		t.Errorf("Expected first entry to explain the tier match, got %q", ranked[0].Reason)
	}
	if ranked[1].Reason != model.ReasonOpenNow {
		t.Errorf("Expected open reason for b, got %q", ranked[1].Reason)
	}
	if ranked[2].Reason != model.ReasonNearby {
		t.Errorf("Expected nearby reason for c, got %q", ranked[2].Reason)
	}

	// Score in bypass mode is the distance component alone: 20 - 0.8*4.
	if !almostEqual(ranked[0].Score, 16.8) {
		t.Errorf("Expected score 16.8, got %v", ranked[0].Score)
	}
}

func TestWeightTableCoversEveryChannel(t *testing.T) {
	for _, tier := range []model.UrgencyTier{model.TierLow, model.TierModerate, model.TierHigh} {
		row, ok := sourceWeight[tier]
		if !ok {
			t.Fatalf("Missing weight row for tier %s", tier)
		}
		for _, src := range model.SourceTiers {
			if _, ok := row[src]; !ok {
				t.Errorf("Tier %s missing weight for %s", tier, src)
			}
		}
		if _, ok := primarySource[tier]; !ok {
			t.Errorf("Tier %s missing primary source", tier)
		}
	}
}
