// Package pipeline orchestrates one voice turn end to end: classify the
// transcript, resolve the region, fan out place-channel fetches, aggregate,
// gate, rank, and compose the assistant message. Every stage after
// classification degrades independently; a turn never fails because an
// upstream did.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/carepath/carepath/internal/aggregate"
	"github.com/carepath/carepath/internal/assist"
	"github.com/carepath/carepath/internal/dataset"
	"github.com/carepath/carepath/internal/model"
	"github.com/carepath/carepath/internal/places"
	"github.com/carepath/carepath/internal/rank"
	"github.com/carepath/carepath/internal/region"
	"github.com/carepath/carepath/internal/safemode"
	"github.com/carepath/carepath/internal/triage"
	"github.com/carepath/carepath/internal/worker"
)

// ErrEmptyTranscript rejects turns with nothing to classify
var ErrEmptyTranscript = errors.New("pipeline: transcript is empty")

// maxOpenStatusNames caps how many pharmacies one turn checks live hours for
const maxOpenStatusNames = 10

// PlacesClient is the slice of the places API the pipeline needs. Tests
// substitute a fake; production wiring passes *places.Client.
type PlacesClient interface {
	Configured() bool
	NearbyEmergency(ctx context.Context, q places.NearbyQuery) ([]model.Candidate, error)
	NearbyHospitals(ctx context.Context, q places.NearbyQuery) ([]model.Candidate, error)
	PharmacyOpenStatus(ctx context.Context, q places.OpenStatusQuery) ([]places.OpenStatus, error)
}

// Pipeline owns the engine stages and their wiring for the life of the
// process. Safe for concurrent turns: every stage is stateless per call.
type Pipeline struct {
	classifier *triage.Classifier
	gate       *safemode.Gate
	engine     *rank.Engine
	places     PlacesClient
	store      *dataset.Store
	composer   *assist.Composer
	cfg        *model.Config
}

// NewPipeline assembles a pipeline. placesClient may be nil (no live
// channels), store may be nil (no baseline), composer may be nil (canned
// messages).
func NewPipeline(cfg *model.Config, placesClient PlacesClient, store *dataset.Store, composer *assist.Composer) *Pipeline {
	if composer == nil {
		composer = assist.NewComposer(nil)
	}

	return &Pipeline{
		classifier: triage.NewClassifier(),
		gate:       safemode.NewGate(cfg.SafeMode.AllowedCategories, cfg.SafeMode.ExcludedCategories),
		engine:     rank.NewEngine(),
		places:     placesClient,
		store:      store,
		composer:   composer,
		cfg:        cfg,
	}
}

// TurnRequest is one voice turn's input. Lat/Lng are optional; explicit
// Province/District override address resolution when set.
type TurnRequest struct {
	Transcript  string
	Lat         *float64
	Lng         *float64
	Province    string // Q0 override
	District    string // Q1 override
	RoadAddress string
	LotAddress  string
}

// RunTurn executes one turn. The only error it returns is
// ErrEmptyTranscript; everything downstream degrades in place.
func (p *Pipeline) RunTurn(ctx context.Context, req TurnRequest) (*model.TurnResult, error) {
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	tier, matches := p.classifier.Classify(transcript)
	regionKey := p.resolveRegion(req)

	hasLocation := req.Lat != nil && req.Lng != nil
	var baseline []model.Candidate
	if hasLocation {
		baseline = p.store.NearbyCandidates(*req.Lat, *req.Lng, p.cfg.Dataset.RadiusKm)
	}

	channels := p.fetchChannels(ctx, tier, req, regionKey)
	merged := aggregate.Merge(baseline, channels)

	candidates := merged.Candidates
	if !hasLocation && len(candidates) == 0 {
		candidates = p.fallbackCandidates(tier)
	}

	p.enrichPharmacies(ctx, tier, regionKey, candidates)

	filtered, noResult := p.gate.Filter(tier, candidates)

	var top []model.RankedCandidate
	if tier == model.TierHigh && merged.EmergencyFresh {
		top = p.engine.Bypass(filtered)
	} else {
		top = p.engine.Rank(tier, filtered)
	}
	if top == nil {
		top = []model.RankedCandidate{}
	}

	message := p.composer.Compose(ctx, assist.Request{
		Transcript: transcript,
		Tier:       tier,
		Places:     top,
		NoResult:   noResult,
	})

	return &model.TurnResult{
		TurnID:           uuid.New().String(),
		Transcript:       transcript,
		Tier:             tier,
		MatchedRules:     ruleIDs(matches),
		Top5:             top,
		SafeMode:         model.SafeModeResult{Applied: tier == model.TierHigh, NoResult: noResult},
		AssistantMessage: message,
	}, nil
}

// resolveRegion picks the turn's administrative region: explicit overrides
// first, then the addresses, then the configured defaults. A turn always
// ends up with a usable Q0.
func (p *Pipeline) resolveRegion(req TurnRequest) model.RegionKey {
	if q0 := strings.TrimSpace(req.Province); q0 != "" {
		if province := region.Canonical(q0); province != "" {
			district := strings.TrimSpace(req.District)
			return model.RegionKey{
				Province:         province,
				District:         district,
				DistrictFallback: districtFallback(district),
			}
		}
	}

	if resolved := region.Resolve(req.RoadAddress, req.LotAddress); resolved.Province != "" {
		return resolved
	}

	return model.RegionKey{
		Province: p.cfg.Region.DefaultProvince,
		District: p.cfg.Region.DefaultDistrict,
	}
}

// districtFallback mirrors the resolver's rule for explicit Q1 overrides:
// "성남시 분당구" can be retried as "성남시".
func districtFallback(district string) string {
	tokens := strings.Fields(district)
	if len(tokens) == 2 && strings.HasSuffix(tokens[0], "시") &&
		(strings.HasSuffix(tokens[1], "구") || strings.HasSuffix(tokens[1], "군")) {
		return tokens[0]
	}
	return ""
}

// channelJob fetches one place channel inside the worker pool. The request
// context rides along so a canceled turn stops its fetches.
type channelJob struct {
	ctx   context.Context
	tier  model.SourceTier
	fetch func(ctx context.Context) ([]model.Candidate, error)
}

type channelResult struct {
	tier       model.SourceTier
	candidates []model.Candidate
	err        error
}

func (r channelResult) GetError() error { return r.err }

func (j channelJob) Execute(poolCtx context.Context) worker.Result {
	select {
	case <-poolCtx.Done():
		return channelResult{tier: j.tier, err: poolCtx.Err()}
	case <-j.ctx.Done():
		return channelResult{tier: j.tier, err: j.ctx.Err()}
	default:
	}

	candidates, err := j.fetch(j.ctx)
	return channelResult{tier: j.tier, candidates: candidates, err: err}
}

// fetchChannels fans the live place queries out through a bounded pool.
// The hospital channel runs on every located turn; the emergency channel
// only at HIGH. A failed channel becomes an empty one.
func (p *Pipeline) fetchChannels(ctx context.Context, tier model.UrgencyTier, req TurnRequest, regionKey model.RegionKey) []aggregate.Channel {
	if req.Lat == nil || req.Lng == nil || p.places == nil || !p.places.Configured() {
		return nil
	}

	pool := worker.NewPool(p.cfg.Concurrency.ChannelWorkers)
	pool.Start()

	hospitalQuery := places.NearbyQuery{
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		Region:   regionKey,
		RadiusKm: p.cfg.Places.HospitalRadiusKm,
		Limit:    p.cfg.Places.ChannelLimit,
	}
	pool.Submit(channelJob{ctx: ctx, tier: model.SourceGeneral, fetch: func(ctx context.Context) ([]model.Candidate, error) {
		return p.places.NearbyHospitals(ctx, hospitalQuery)
	}})

	if tier == model.TierHigh {
		emergencyQuery := places.NearbyQuery{
			Lat:      *req.Lat,
			Lng:      *req.Lng,
			Region:   regionKey,
			RadiusKm: p.cfg.Places.EmergencyRadiusKm,
			Limit:    p.cfg.Places.ChannelLimit,
		}
		pool.Submit(channelJob{ctx: ctx, tier: model.SourceEmergency, fetch: func(ctx context.Context) ([]model.Candidate, error) {
			return p.places.NearbyEmergency(ctx, emergencyQuery)
		}})
	}

	var channels []aggregate.Channel
	for _, res := range pool.Wait() {
		cr, ok := res.(channelResult)
		if !ok {
			continue
		}
		if err := cr.GetError(); err != nil {
			p.warnf("%s channel failed: %v", cr.tier, err)
			channels = append(channels, aggregate.Channel{Tier: cr.tier})
			continue
		}
		channels = append(channels, aggregate.Channel{Tier: cr.tier, Candidates: cr.candidates})
	}
	return channels
}

// enrichPharmacies resolves live open states for pharmacy candidates whose
// hours are unknown. HIGH turns skip it: pharmacies are gated out anyway.
func (p *Pipeline) enrichPharmacies(ctx context.Context, tier model.UrgencyTier, regionKey model.RegionKey, candidates []model.Candidate) {
	if tier == model.TierHigh || p.places == nil || !p.places.Configured() || regionKey.Province == "" {
		return
	}

	var idx []int
	var names []string
	for i, c := range candidates {
		if c.Source != model.SourcePharmacy || c.Open != model.OpenStateUnknown {
			continue
		}
		idx = append(idx, i)
		names = append(names, c.Name)
		if len(names) >= maxOpenStatusNames {
			break
		}
	}
	if len(names) == 0 {
		return
	}

	statuses, err := p.places.PharmacyOpenStatus(ctx, places.OpenStatusQuery{
		Region: regionKey,
		Names:  names,
		AtHHMM: -1,
	})
	if err != nil {
		p.warnf("pharmacy open-status enrichment skipped: %v", err)
		return
	}
	if len(statuses) != len(idx) {
		return
	}

	for i, status := range statuses {
		if status.Source != places.StatusSourceAPI {
			continue
		}
		candidates[idx[i]].Open = status.State
		candidates[idx[i]].OpenUntil = status.OpenUntil
	}
}

// fallbackCandidates keeps a no-location turn answerable: one well-known
// place per urgency band, in the configured default region.
func (p *Pipeline) fallbackCandidates(tier model.UrgencyTier) []model.Candidate {
	fallbackRegion := model.RegionKey{
		Province: p.cfg.Region.DefaultProvince,
		District: p.cfg.Region.DefaultDistrict,
	}

	if tier == model.TierHigh {
		return []model.Candidate{{
			ID:               "fallback-er",
			Name:             "서울대학교병원 응급의료센터",
			Source:           model.SourceEmergency,
			Category:         "emergency_room",
			Address:          "서울특별시 종로구 대학로 101",
			Lat:              37.5796,
			Lng:              126.9990,
			Open:             model.OpenStateUnknown,
			EmergencyCapable: true,
			Region:           fallbackRegion,
		}}
	}

	return []model.Candidate{{
		ID:       "fallback-clinic",
		Name:     "종로중앙의원",
		Source:   model.SourceGeneral,
		Category: "clinic",
		Address:  "서울특별시 종로구 종로 19",
		Lat:      37.5700,
		Lng:      126.9822,
		Open:     model.OpenStateUnknown,
		Region:   fallbackRegion,
	}}
}

func ruleIDs(matches []model.RuleMatch) []string {
	if len(matches) == 0 {
		return nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

func (p *Pipeline) warnf(format string, args ...interface{}) {
	if p.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}
