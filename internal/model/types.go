package model

// UrgencyTier is the triage outcome for a single transcript
type UrgencyTier string

const (
	TierLow      UrgencyTier = "LOW"      // Self-care / OTC territory
	TierModerate UrgencyTier = "MODERATE" // Pharmacy or clinic visit advisable
	TierHigh     UrgencyTier = "HIGH"     // Emergency care, safe mode engages
)

// Rank orders tiers by severity. The zero value (unset tier) ranks below LOW.
func (t UrgencyTier) Rank() int {
	switch t {
	case TierLow:
		return 1
	case TierModerate:
		return 2
	case TierHigh:
		return 3
	default:
		return 0
	}
}

// SourceTier identifies which supply channel produced a candidate
type SourceTier string

const (
	SourceOTCStore  SourceTier = "OTC_STORE"      // Convenience/retail outlets selling OTC meds
	SourcePharmacy  SourceTier = "PHARMACY"       // Licensed pharmacies
	SourceGeneral   SourceTier = "GENERAL_CARE"   // Clinics and hospitals
	SourceEmergency SourceTier = "EMERGENCY_CARE" // Emergency rooms and trauma centers
)

// SourceTiers lists every channel in ascending care intensity.
// Ranking weight tables must cover exactly this set.
var SourceTiers = []SourceTier{SourceOTCStore, SourcePharmacy, SourceGeneral, SourceEmergency}

// OpenState is the best-effort operating status of a place
type OpenState string

const (
	OpenStateOpen    OpenState = "OPEN"
	OpenStateClosed  OpenState = "CLOSED"
	OpenStateUnknown OpenState = "UNKNOWN" // Missing duty hours, upstream failure, or no data source
)

// RegionKey is the administrative routing key for Korean government place APIs.
// Province is the canonical top-level name (Q0), District the second-level
// name (Q1). DistrictFallback carries the broader city name for three-level
// addresses so a too-narrow district query can be retried one level up.
type RegionKey struct {
	Province         string `json:"province" yaml:"province" mapstructure:"province"`
	District         string `json:"district,omitempty" yaml:"district" mapstructure:"district"`
	DistrictFallback string `json:"-" yaml:"-" mapstructure:"-"`
}

// IsZero reports whether no region information was resolved
func (k RegionKey) IsZero() bool {
	return k.Province == "" && k.District == ""
}

// RuleMatch records one triage rule that fired, kept for explainability
type RuleMatch struct {
	ID           string      `json:"id"`            // Stable rule identifier (e.g. "seizure")
	Tier         UrgencyTier `json:"tier"`          // Tier the rule argues for
	Weight       int         `json:"weight"`        // Evidence weight contributed
	HardOverride bool        `json:"hard_override"` // Unambiguous phrase, forces HIGH outright
}

// Candidate is a care location under consideration for a turn
type Candidate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Source      SourceTier `json:"source"`
	Category    string     `json:"category"` // Free-form label (pharmacy, emergency_room, clinic, ...)
	Address     string     `json:"address"`
	RoadAddress string     `json:"road_address,omitempty"`
	LotAddress  string     `json:"lot_address,omitempty"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	DistanceKm  float64    `json:"distance_km"`
	Open        OpenState  `json:"open_status"`
	OpenUntil   string     `json:"open_until,omitempty"` // "HH:MM" display form when known
	Phone       string     `json:"phone,omitempty"`

	// EmergencyCapable marks places that can take emergencies even when
	// their category is not allow-listed (e.g. a clinic tagged dutyEryn=Y).
	EmergencyCapable bool `json:"emergency_capable,omitempty"`

	// Region the candidate was fetched or resolved under. Routing data,
	// not part of the wire format.
	Region RegionKey `json:"-"`
}

// RankReason is the single dominant explanation attached to a ranked candidate
type RankReason string

const (
	ReasonTierMatch RankReason = "matches urgency tier"
	ReasonOpenNow   RankReason = "currently open"
	ReasonNearby    RankReason = "nearby"
)

// RankedCandidate is a candidate with its final score and explanation
type RankedCandidate struct {
	Candidate
	Score  float64    `json:"final_score"`
	Reason RankReason `json:"rank_reason"`
}

// SafeModeResult reports whether the HIGH-tier category gate ran and whether
// it eliminated every candidate
type SafeModeResult struct {
	Applied  bool `json:"applied"`
	NoResult bool `json:"no_result"`
}

// TurnResult is the complete outcome of one voice turn
type TurnResult struct {
	TurnID           string            `json:"turn_id"`
	Transcript       string            `json:"transcript"`
	Tier             UrgencyTier       `json:"triage_level"`
	MatchedRules     []string          `json:"matched_rules,omitempty"` // IDs of rules that fired
	Top5             []RankedCandidate `json:"top5_places"`
	SafeMode         SafeModeResult    `json:"safe_mode_result"`
	AssistantMessage string            `json:"assistant_message"`
}
