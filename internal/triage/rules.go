package triage

import "github.com/carepath/carepath/internal/model"

// Rule is one weighted keyword heuristic. A rule fires when any of its
// keywords appears in the normalized transcript; rules are not mutually
// exclusive, so one transcript can contribute evidence toward both tiers.
type Rule struct {
	ID           string            // Stable identifier surfaced in explanations
	Tier         model.UrgencyTier // Tier the rule argues for
	Weight       int               // Evidence weight, accumulated per tier
	HardOverride bool              // Forces HIGH regardless of accumulated weight
	Keywords     []string          // Substring patterns, matched on the normalized transcript
}

// highTierThreshold is the accumulated HIGH weight at which a transcript
// classifies as HIGH without a hard override.
const highTierThreshold = 4

// defaultRules is the production rule table. Hard overrides carry the
// phrases that are unambiguous on their own; weight-4 rules describe single
// symptoms that warrant emergency care by themselves; weight-2 HIGH rules
// need corroboration. A bare mention of 119 or 응급 is treated as
// corroborating evidence, not a standalone emergency.
var defaultRules = []Rule{
	{ID: "cardiac-arrest", Tier: model.TierHigh, Weight: 4, HardOverride: true,
		Keywords: []string{"심정지", "심장이 멈"}},
	{ID: "unconscious", Tier: model.TierHigh, Weight: 4, HardOverride: true,
		Keywords: []string{"의식이 없", "의식을 잃", "의식불명"}},
	{ID: "amputation", Tier: model.TierHigh, Weight: 4, HardOverride: true,
		Keywords: []string{"절단"}},
	{ID: "severe-bleeding", Tier: model.TierHigh, Weight: 4, HardOverride: true,
		Keywords: []string{"심한 출혈", "피를 많이"}},

	{ID: "breathing-difficulty", Tier: model.TierHigh, Weight: 4,
		Keywords: []string{"호흡곤란", "숨이 안", "숨을 못"}},
	{ID: "seizure", Tier: model.TierHigh, Weight: 4,
		Keywords: []string{"경련", "발작"}},
	{ID: "paralysis", Tier: model.TierHigh, Weight: 4,
		Keywords: []string{"마비"}},
	{ID: "fainting", Tier: model.TierHigh, Weight: 4,
		Keywords: []string{"실신"}},
	{ID: "chest-pain", Tier: model.TierHigh, Weight: 2,
		Keywords: []string{"가슴 통증", "가슴 압박", "흉통"}},
	{ID: "emergency-call", Tier: model.TierHigh, Weight: 2,
		Keywords: []string{"119", "응급"}},

	{ID: "fever", Tier: model.TierModerate, Weight: 2,
		Keywords: []string{"고열", "열이", "미열"}},
	{ID: "abdominal-pain", Tier: model.TierModerate, Weight: 2,
		Keywords: []string{"복통", "배가 아"}},
	{ID: "vomiting", Tier: model.TierModerate, Weight: 2,
		Keywords: []string{"구토", "토했", "토할"}},
	{ID: "diarrhea", Tier: model.TierModerate, Weight: 2,
		Keywords: []string{"설사"}},
	{ID: "pain", Tier: model.TierModerate, Weight: 1,
		Keywords: []string{"통증", "아파", "아프", "아픈"}},
	{ID: "dizziness", Tier: model.TierModerate, Weight: 1,
		Keywords: []string{"어지러", "어지럽"}},
	{ID: "cough", Tier: model.TierModerate, Weight: 1,
		Keywords: []string{"기침"}},
	{ID: "body-aches", Tier: model.TierModerate, Weight: 1,
		Keywords: []string{"몸살"}},
	{ID: "swelling", Tier: model.TierModerate, Weight: 1,
		Keywords: []string{"염증", "붓기", "부었", "부어"}},
}
