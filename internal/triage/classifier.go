package triage

import (
	"strings"

	"github.com/carepath/carepath/internal/model"
)

// Classifier assigns an urgency tier to a symptom transcript
type Classifier struct {
	rules         []Rule
	highThreshold int
}

// NewClassifier creates a classifier with the production rule table
func NewClassifier() *Classifier {
	return &Classifier{
		rules:         defaultRules,
		highThreshold: highTierThreshold,
	}
}

// Classify runs every rule against the transcript and decides the tier.
// A hard-override match classifies HIGH outright; otherwise accumulated
// HIGH weight must reach the threshold. Any MODERATE match classifies
// MODERATE when HIGH does not apply. Transcripts matching nothing are LOW:
// absence of evidence is never escalated.
//
// The returned matches are in rule-table order and are the complete
// explanation for the decision.
func (c *Classifier) Classify(transcript string) (model.UrgencyTier, []model.RuleMatch) {
	text := strings.ToLower(strings.TrimSpace(transcript))
	if text == "" {
		return model.TierLow, nil
	}

	var matches []model.RuleMatch
	highWeight := 0
	moderateWeight := 0
	override := false

	for _, rule := range c.rules {
		if !ruleMatches(rule, text) {
			continue
		}
		matches = append(matches, model.RuleMatch{
			ID:           rule.ID,
			Tier:         rule.Tier,
			Weight:       rule.Weight,
			HardOverride: rule.HardOverride,
		})
		switch rule.Tier {
		case model.TierHigh:
			highWeight += rule.Weight
			if rule.HardOverride {
				override = true
			}
		case model.TierModerate:
			moderateWeight += rule.Weight
		}
	}

	switch {
	case override || highWeight >= c.highThreshold:
		return model.TierHigh, matches
	case moderateWeight > 0:
		return model.TierModerate, matches
	default:
		return model.TierLow, matches
	}
}

func ruleMatches(rule Rule, text string) bool {
	for _, kw := range rule.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
