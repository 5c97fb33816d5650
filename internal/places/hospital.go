package places

import (
	"context"
	"strings"

	"github.com/carepath/carepath/internal/model"
)

// hospitalCategory maps the institution-type label (dutyDivNam) onto the
// category vocabulary the rest of the engine understands. Unknown labels
// default to hospital, the safer assumption for gating.
var hospitalCategory = map[string]string{
	"의원":     "clinic",
	"치과의원":   "clinic",
	"치과병원":   "clinic",
	"한의원":    "clinic",
	"병원":     "hospital",
	"종합병원":   "hospital",
	"상급종합병원": "hospital",
	"요양병원":   "hospital",
	"한방병원":   "hospital",
}

// NearbyHospitals lists general-care institutions around the caller,
// nearest first
func (c *Client) NearbyHospitals(ctx context.Context, q NearbyQuery) ([]model.Candidate, error) {
	items, err := c.fetchList(ctx, hospitalListPath, q.Region.Province, q.Region.District)
	if err != nil {
		return nil, err
	}

	now := c.nowFunc().In(seoulLocation)
	dayIdx := dutyDayIndex(now.Weekday())
	nowHHMM := now.Hour()*100 + now.Minute()

	candidates := make([]model.Candidate, 0, len(items))
	for _, item := range items {
		distance, ok := distanceWithin(q, float64(item.Lat), float64(item.Lon))
		if !ok {
			continue
		}

		open, until := openStateAt(item, dayIdx, nowHHMM)

		candidates = append(candidates, model.Candidate{
			ID:               item.HPID,
			Name:             item.DutyName,
			Source:           model.SourceGeneral,
			Category:         categoryForDiv(item.DutyDiv),
			Address:          item.DutyAddr,
			Lat:              float64(item.Lat),
			Lng:              float64(item.Lon),
			DistanceKm:       distance,
			Open:             open,
			OpenUntil:        until,
			Phone:            item.DutyTel1,
			EmergencyCapable: strings.EqualFold(strings.TrimSpace(item.DutyEryn), "Y"),
			Region:           q.Region,
		})
	}

	sortByDistance(candidates)
	return capLimit(candidates, q.Limit), nil
}

func categoryForDiv(div string) string {
	if category, ok := hospitalCategory[strings.TrimSpace(div)]; ok {
		return category
	}
	return "hospital"
}
