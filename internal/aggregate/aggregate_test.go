package aggregate

import (
	"strings"
	"testing"

	"github.com/carepath/carepath/internal/model"
)

func testBaseline() []model.Candidate {
	return []model.Candidate{
		{ID: "base-pharm-1", Name: "온누리약국", Source: model.SourcePharmacy},
		{ID: "base-pharm-2", Name: "종로약국", Source: model.SourcePharmacy},
		{ID: "base-er-1", Name: "서울대병원 응급실", Source: model.SourceEmergency},
		{ID: "base-otc-1", Name: "GS25 종로점", Source: model.SourceOTCStore},
	}
}

func TestMergeReplacesTierWholesale(t *testing.T) {
	fresh := []model.Candidate{
		{Name: "중앙약국"},
		{Name: "새봄약국"},
	}

	result := Merge(testBaseline(), []Channel{
		{Tier: model.SourcePharmacy, Candidates: fresh},
	})

	var pharmacies, others int
	for _, c := range result.Candidates {
		if c.Source == model.SourcePharmacy {
			pharmacies++
			if strings.HasPrefix(c.ID, "base-") {
				t.Errorf("Baseline pharmacy %s survived replacement", c.ID)
			}
		} else {
			others++
		}
	}

	if pharmacies != 2 {
		t.Errorf("Expected 2 fresh pharmacies, got %d", pharmacies)
	}
	if others != 2 {
		t.Errorf("Expected 2 untouched non-pharmacy entries, got %d", others)
	}
}

func TestMergeEmptyChannelKeepsBaseline(t *testing.T) {
	result := Merge(testBaseline(), []Channel{
		{Tier: model.SourcePharmacy, Candidates: nil},
	})

	if len(result.Candidates) != 4 {
		t.Errorf("Expected full baseline, got %d candidates", len(result.Candidates))
	}
	if result.EmergencyFresh {
		t.Error("Expected no emergency-fresh signal")
	}
}

func TestMergeNamespacesChannelIDs(t *testing.T) {
	result := Merge(nil, []Channel{
		{Tier: model.SourceEmergency, Candidates: []model.Candidate{
			{Name: "서울성모병원 응급실", ID: "hpid-123"},
			{Name: "적십자병원 응급실", ID: "hpid-123"}, // upstream duplicate
		}},
	})

	if len(result.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(result.Candidates))
	}
	seen := map[string]bool{}
	for i, c := range result.Candidates {
		prefix := "emergency_care-"
		if !strings.HasPrefix(c.ID, prefix) {
			t.Errorf("Candidate %d: expected id prefix %q, got %q", i, prefix, c.ID)
		}
		if seen[c.ID] {
			t.Errorf("Duplicate id %q after namespacing", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestMergeSetsEmergencyFreshSignal(t *testing.T) {
	result := Merge(testBaseline(), []Channel{
		{Tier: model.SourceEmergency, Candidates: []model.Candidate{{Name: "적십자병원"}}},
	})

	if !result.EmergencyFresh {
		t.Error("Expected emergency-fresh signal when the emergency channel is non-empty")
	}

	// The baseline emergency entry must be gone.
	for _, c := range result.Candidates {
		if c.ID == "base-er-1" {
			t.Error("Baseline emergency entry survived a fresh emergency channel")
		}
	}
}

func TestMergeStampsChannelSource(t *testing.T) {
	result := Merge(nil, []Channel{
		{Tier: model.SourceGeneral, Candidates: []model.Candidate{
			{Name: "종로의원"}, // mapped without a source set
		}},
	})

	if result.Candidates[0].Source != model.SourceGeneral {
		t.Errorf("Expected source stamped to GENERAL_CARE, got %s", result.Candidates[0].Source)
	}
}

func TestMergeDeterministicOrder(t *testing.T) {
	channels := []Channel{
		{Tier: model.SourceGeneral, Candidates: []model.Candidate{{Name: "본플러스병원"}}},
		{Tier: model.SourceEmergency, Candidates: []model.Candidate{{Name: "서울백병원 응급실"}}},
	}

	result := Merge(testBaseline(), channels)

	wantNames := []string{"본플러스병원", "서울백병원 응급실", "온누리약국", "종로약국", "GS25 종로점"}
	if len(result.Candidates) != len(wantNames) {
		t.Fatalf("Expected %d candidates, got %d", len(wantNames), len(result.Candidates))
	}
	for i, want := range wantNames {
		if result.Candidates[i].Name != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, result.Candidates[i].Name)
		}
	}
}
