package places

import (
	"context"
	"regexp"
	"strings"

	"github.com/carepath/carepath/internal/model"
)

// Open-status provenance values
const (
	StatusSourceAPI      = "api"       // Matched against live data
	StatusSourceNoMatch  = "no_match"  // No upstream pharmacy matched the name
	StatusSourceAPIError = "api_error" // Upstream failure, state unknowable
)

// OpenStatusQuery asks for the live open state of named pharmacies
type OpenStatusQuery struct {
	Region  model.RegionKey
	Names   []string
	AtHHMM  int  // Clock value to evaluate; negative means "now" in Seoul time
	Holiday bool // Evaluate the holiday window instead of today's weekday
}

// OpenStatus is the per-name answer. Source records where the verdict came
// from so callers can tell "closed" apart from "could not check".
type OpenStatus struct {
	Name      string          `json:"name"`
	State     model.OpenState `json:"open_status"`
	OpenUntil string          `json:"open_until,omitempty"`
	Source    string          `json:"source"`
}

// nameFilter strips everything that is not a Hangul syllable, Hangul jamo,
// or ASCII alphanumeric. Branch decorations ("(종로점)", "★", spacing) vary
// between the curated dataset and the government registry; matching happens
// on the residue.
var nameFilter = regexp.MustCompile(`[^\x{AC00}-\x{D7A3}\x{1100}-\x{11FF}\x{3130}-\x{318F}a-zA-Z0-9]`)

func normalizeName(name string) string {
	return strings.ToLower(nameFilter.ReplaceAllString(name, ""))
}

// PharmacyOpenStatus resolves the open state of each named pharmacy against
// the government registry for the query region. A district that returns
// nothing is retried once at the broader city level when the region carries
// a fallback. Upstream failures degrade to UNKNOWN per name rather than an
// error: open-state enrichment is never worth failing a turn over.
func (c *Client) PharmacyOpenStatus(ctx context.Context, q OpenStatusQuery) ([]OpenStatus, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	items, err := c.fetchList(ctx, pharmacyListPath, q.Region.Province, q.Region.District)
	if err == nil && len(items) == 0 && q.Region.DistrictFallback != "" {
		items, err = c.fetchList(ctx, pharmacyListPath, q.Region.Province, q.Region.DistrictFallback)
	}
	if err != nil {
		return statusesForError(q.Names), nil
	}

	dayIdx := holidayDutyIndex
	if !q.Holiday {
		dayIdx = dutyDayIndex(c.nowFunc().In(seoulLocation).Weekday())
	}

	nowHHMM := q.AtHHMM
	if nowHHMM < 0 {
		now := c.nowFunc().In(seoulLocation)
		nowHHMM = now.Hour()*100 + now.Minute()
	}

	statuses := make([]OpenStatus, 0, len(q.Names))
	for _, name := range q.Names {
		statuses = append(statuses, matchOpenStatus(name, items, dayIdx, nowHHMM))
	}
	return statuses, nil
}

// matchOpenStatus finds the first registry item whose normalized name
// contains, or is contained by, the normalized query name
func matchOpenStatus(name string, items []placeItem, dayIdx, nowHHMM int) OpenStatus {
	want := normalizeName(name)
	if want == "" {
		return OpenStatus{Name: name, State: model.OpenStateUnknown, Source: StatusSourceNoMatch}
	}

	for _, item := range items {
		got := normalizeName(item.DutyName)
		if got == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			state, until := openStateAt(item, dayIdx, nowHHMM)
			return OpenStatus{Name: name, State: state, OpenUntil: until, Source: StatusSourceAPI}
		}
	}

	return OpenStatus{Name: name, State: model.OpenStateUnknown, Source: StatusSourceNoMatch}
}

func statusesForError(names []string) []OpenStatus {
	statuses := make([]OpenStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, OpenStatus{
			Name:   name,
			State:  model.OpenStateUnknown,
			Source: StatusSourceAPIError,
		})
	}
	return statuses
}
