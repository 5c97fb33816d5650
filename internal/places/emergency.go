package places

import (
	"context"

	"github.com/carepath/carepath/internal/geo"
	"github.com/carepath/carepath/internal/model"
)

// NearbyEmergency lists emergency rooms around the caller, nearest first.
// Places the dataset cannot geocode are pinned at the search radius instead
// of dropped: on a HIGH turn an ER with a missing coordinate is still a
// better answer than none.
func (c *Client) NearbyEmergency(ctx context.Context, q NearbyQuery) ([]model.Candidate, error) {
	items, err := c.fetchList(ctx, emergencyListPath, q.Region.Province, q.Region.District)
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

		open, until := emergencyOpenState(item, dayIdx, nowHHMM)

		candidates = append(candidates, model.Candidate{
			ID:               item.HPID,
			Name:             item.DutyName,
			Source:           model.SourceEmergency,
			Category:         "emergency_room",
			Address:          item.DutyAddr,
			Lat:              float64(item.Lat),
			Lng:              float64(item.Lon),
			DistanceKm:       distance,
			Open:             open,
			OpenUntil:        until,
			Phone:            emergencyPhone(item),
			EmergencyCapable: true,
			Region:           q.Region,
		})
	}

	sortByDistance(candidates)
	return capLimit(candidates, q.Limit), nil
}

// emergencyPhone prefers the dedicated ER line over the switchboard
func emergencyPhone(item placeItem) string {
	if item.DutyTel3 != "" {
		return item.DutyTel3
	}
	return item.DutyTel1
}

// distanceWithin computes the rounded distance from the query point, keeping
// coordinate-less places at the radius edge. ok is false only when the place
// lies beyond the radius.
func distanceWithin(q NearbyQuery, lat, lng float64) (float64, bool) {
	if lat == 0 || lng == 0 {
		return geo.RoundKm(q.RadiusKm), true
	}

	distance := geo.HaversineKm(q.Lat, q.Lng, lat, lng)
	if distance > q.RadiusKm {
		return 0, false
	}
	return geo.RoundKm(distance), true
}
