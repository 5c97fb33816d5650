package assist

import (
	"context"

	"github.com/carepath/carepath/internal/model"
)

// Provider rewrites the canned guidance sentence in a warmer voice. The
// canned message is always composed first; a provider only refines it, and
// any provider failure falls back to the canned text.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Refine rewrites the canned message for this turn
	Refine(ctx context.Context, req RefineRequest) (string, error)
}

// RefineRequest carries everything a provider may mention. Place names are
// the only facts it is allowed to add beyond the canned text.
type RefineRequest struct {
	// Transcript is the user's symptom description
	Transcript string

	// Tier is the triage outcome
	Tier model.UrgencyTier

	// Canned is the deterministic message the refinement starts from
	Canned string

	// Places are the ranked recommendations, nearest-relevant first
	Places []model.RankedCandidate
}
