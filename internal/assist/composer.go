// Package assist composes the Korean guidance sentence attached to every
// turn. Composition is deterministic and never fails; an optional LLM
// provider may rephrase the result but can never block or break a turn.
package assist

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/carepath/carepath/internal/model"
)

// Three voice variants per tier. The pick is seeded by tier and top place so
// the same situation always reads the same while different places vary the
// phrasing.
var tierVariants = map[model.UrgencyTier][3]string{
	model.TierHigh: {
		"증상이 위급해 보입니다. 즉시 119에 연락하거나 가까운 응급실로 이동하세요.",
		"응급 상황일 수 있습니다. 지금 바로 응급 진료가 가능한 곳으로 가시기 바랍니다.",
		"위급한 증상입니다. 주저하지 말고 응급실을 방문하거나 119를 호출하세요.",
	},
	model.TierModerate: {
		"진료가 필요한 증상으로 보입니다. 가까운 약국이나 병원을 방문해 보세요.",
		"증상이 계속되면 병원 진료를 받아보시는 것이 좋겠습니다.",
		"가까운 약국에서 상담을 받거나 병원 방문을 권해 드립니다.",
	},
	model.TierLow: {
		"가벼운 증상으로 보입니다. 가까운 편의점이나 약국에서 상비약을 구할 수 있습니다.",
		"휴식을 취하면서 경과를 지켜보세요. 필요하면 상비약을 준비해 두세요.",
		"증상이 가볍습니다. 주변에서 간단한 의약품을 구입해 관리해 보세요.",
	},
}

const (
	noPlacesSuffix    = " 주변 추천 장소를 찾지 못했습니다."
	safeModeExhausted = "지금 바로 119에 전화하세요. 주변에서 안전한 응급 진료 기관을 찾지 못했습니다."
)

// Request describes the turn outcome the message must communicate
type Request struct {
	Transcript string
	Tier       model.UrgencyTier
	Places     []model.RankedCandidate
	NoResult   bool // Safe mode ran and eliminated everything
}

// Composer produces the assistant message for a turn
type Composer struct {
	provider Provider
}

// NewComposer creates a composer. provider may be nil for canned-only
// operation.
func NewComposer(provider Provider) *Composer {
	return &Composer{provider: provider}
}

// Compose builds the message for a turn. The canned form is computed first;
// when a provider is configured its refinement replaces the canned text
// unless it errors.
func (c *Composer) Compose(ctx context.Context, req Request) string {
	canned := cannedMessage(req)

	if c.provider == nil {
		return canned
	}

	refined, err := c.provider.Refine(ctx, RefineRequest{
		Transcript: req.Transcript,
		Tier:       req.Tier,
		Canned:     canned,
		Places:     req.Places,
	})
	if err != nil || refined == "" {
		return canned
	}
	return refined
}

// cannedMessage is the deterministic fallback voice
func cannedMessage(req Request) string {
	if req.Tier == model.TierHigh && req.NoResult {
		return safeModeExhausted
	}

	topName := ""
	if len(req.Places) > 0 {
		topName = req.Places[0].Name
	}

	variants, ok := tierVariants[req.Tier]
	if !ok {
		variants = tierVariants[model.TierLow]
	}
	base := variants[variantIndex(req.Tier, topName)]

	if topName == "" {
		return base + noPlacesSuffix
	}
	top := req.Places[0]
	return base + fmt.Sprintf(" 추천 장소: %s (%.2fkm)", top.Name, top.DistanceKm)
}

// variantIndex picks one of the three variants by FNV-1a of tier plus the
// top place name
func variantIndex(tier model.UrgencyTier, topName string) int {
	h := fnv.New32a()
	h.Write([]byte(string(tier) + topName))
	return int(h.Sum32() % 3)
}
