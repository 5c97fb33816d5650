package triage

import (
	"reflect"
	"testing"

	"github.com/carepath/carepath/internal/model"
)

func TestClassifyHardOverride(t *testing.T) {
	c := NewClassifier()

	tier, matches := c.Classify("아버지가 갑자기 쓰러져서 의식이 없어요")

	if tier != model.TierHigh {
		t.Fatalf("Expected HIGH, got %s", tier)
	}
	found := false
	for _, m := range matches {
		if m.ID == "unconscious" {
			found = true
			if !m.HardOverride {
				t.Error("Expected unconscious match to carry the hard override flag")
			}
		}
	}
	if !found {
		t.Errorf("Expected unconscious rule in matches, got %+v", matches)
	}
}

func TestClassifyOverrideResistsDilution(t *testing.T) {
	c := NewClassifier()

	// A pile of mild symptoms must not drag an unambiguous emergency down.
	tier, _ := c.Classify("의식이 없고 열이 나고 기침도 하고 몸살 기운에 설사까지 해요")

	if tier != model.TierHigh {
		t.Errorf("Expected HIGH despite moderate co-matches, got %s", tier)
	}
}

func TestClassifyWeightAccumulation(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name       string
		transcript string
		tier       model.UrgencyTier
	}{
		{"single severe symptom reaches threshold", "갑자기 팔다리에 경련이 왔어요", model.TierHigh},
		{"breathing difficulty alone", "숨이 안 쉬어져요", model.TierHigh},
		{"two weak high signals corroborate", "가슴 통증이 심해서 119를 불러야 할 것 같아요", model.TierHigh},
		{"chest pain alone stays moderate", "어제부터 가슴 통증이 있어요", model.TierModerate},
		{"emergency mention alone stays low", "응급실 위치가 궁금해요", model.TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, _ := c.Classify(tt.transcript)
			if tier != tt.tier {
				t.Errorf("Expected %s, got %s", tt.tier, tier)
			}
		})
	}
}

func TestClassifyModerate(t *testing.T) {
	c := NewClassifier()

	tier, matches := c.Classify("열이 나고 기침을 해요")

	if tier != model.TierModerate {
		t.Fatalf("Expected MODERATE, got %s", tier)
	}

	ids := map[string]bool{}
	for _, m := range matches {
		ids[m.ID] = true
	}
	if !ids["fever"] || !ids["cough"] {
		t.Errorf("Expected fever and cough matches, got %+v", matches)
	}
}

func TestClassifyNoMatchIsLow(t *testing.T) {
	c := NewClassifier()

	tier, matches := c.Classify("안녕하세요 근처에 뭐가 있는지 궁금해서요")

	if tier != model.TierLow {
		t.Errorf("Expected LOW, got %s", tier)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %+v", matches)
	}
}

func TestClassifyEmptyTranscript(t *testing.T) {
	c := NewClassifier()

	tier, matches := c.Classify("   ")

	if tier != model.TierLow {
		t.Errorf("Expected LOW for blank transcript, got %s", tier)
	}
	if matches != nil {
		t.Errorf("Expected nil matches, got %+v", matches)
	}
}

func TestClassifyNormalizesWhitespace(t *testing.T) {
	c := NewClassifier()

	tier, _ := c.Classify("  경련  ")

	if tier != model.TierHigh {
		t.Errorf("Expected HIGH after trimming, got %s", tier)
	}
}

func TestClassifyCrossTierEvidence(t *testing.T) {
	c := NewClassifier()

	// "가슴 통증" carries HIGH evidence (chest-pain) and MODERATE evidence
	// (the generic pain rule matches the same substring).
	_, matches := c.Classify("가슴 통증이 있어요")

	tiers := map[model.UrgencyTier]bool{}
	for _, m := range matches {
		tiers[m.Tier] = true
	}
	if !tiers[model.TierHigh] || !tiers[model.TierModerate] {
		t.Errorf("Expected evidence toward both tiers, got %+v", matches)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier()
	transcript := "열이 나고 구토를 했고 어지러워요"

	tier1, matches1 := c.Classify(transcript)
	tier2, matches2 := c.Classify(transcript)

	if tier1 != tier2 {
		t.Errorf("Expected identical tiers, got %s and %s", tier1, tier2)
	}
	if !reflect.DeepEqual(matches1, matches2) {
		t.Errorf("Expected identical matches, got %+v and %+v", matches1, matches2)
	}
}
