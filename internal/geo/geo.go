// Package geo provides the distance math shared by the places clients and
// the baseline dataset.
package geo

import "math"

const earthRadiusKm = 6371.0

// HaversineKm computes the great-circle distance in kilometers between two
// WGS84 points
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// RoundKm trims a distance to 3 decimals for stable presentation
func RoundKm(km float64) float64 {
	return math.Round(km*1000) / 1000
}
