// Package dataset loads the curated baseline of care locations. The CSV is
// the floor under every turn: external channels replace its entries when
// they respond, but a turn never starts from nothing.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/carepath/carepath/internal/geo"
	"github.com/carepath/carepath/internal/model"
	"github.com/carepath/carepath/internal/region"
)

// Column order of data/medical_places.csv
const (
	colID = iota
	colName
	colSourceTier
	colCategory
	colAddress
	colRoadAddress
	colLotAddress
	colLat
	colLng
	columnCount
)

// Store is an immutable in-memory copy of the curated places. Safe for
// concurrent readers once loaded.
type Store struct {
	places  []model.Candidate
	skipped int
}

// Load reads the curated CSV at path. Malformed rows are counted and
// skipped rather than failing the load; a care-navigation process with a
// partial baseline beats one that refuses to start.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return parse(f)
}

func parse(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	store := &Store{}
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}

		if first {
			first = false
			if len(row) > colID && strings.EqualFold(row[colID], "id") {
				continue // header
			}
		}

		place, ok := parseRow(row)
		if !ok {
			store.skipped++
			continue
		}
		store.places = append(store.places, place)
	}

	return store, nil
}

func parseRow(row []string) (model.Candidate, bool) {
	if len(row) != columnCount {
		return model.Candidate{}, false
	}

	id := strings.TrimSpace(row[colID])
	name := strings.TrimSpace(row[colName])
	if id == "" || name == "" {
		return model.Candidate{}, false
	}

	source, ok := parseSourceTier(row[colSourceTier])
	if !ok {
		return model.Candidate{}, false
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[colLat]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(row[colLng]), 64)
	if errLat != nil || errLng != nil || lat == 0 || lng == 0 {
		return model.Candidate{}, false
	}

	roadAddr := strings.TrimSpace(row[colRoadAddress])
	lotAddr := strings.TrimSpace(row[colLotAddress])
	address := strings.TrimSpace(row[colAddress])

	regionSource := roadAddr
	if regionSource == "" {
		regionSource = address
	}

	return model.Candidate{
		ID:          id,
		Name:        name,
		Source:      source,
		Category:    strings.TrimSpace(row[colCategory]),
		Address:     address,
		RoadAddress: roadAddr,
		LotAddress:  lotAddr,
		Lat:         lat,
		Lng:         lng,
		Open:        model.OpenStateUnknown,
		Region:      region.Resolve(regionSource, lotAddr),
	}, true
}

func parseSourceTier(raw string) (model.SourceTier, bool) {
	want := strings.ToUpper(strings.TrimSpace(raw))
	for _, tier := range model.SourceTiers {
		if string(tier) == want {
			return tier, true
		}
	}
	return "", false
}

// Len reports the number of usable places
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.places)
}

// Skipped reports how many rows the load discarded
func (s *Store) Skipped() int {
	if s == nil {
		return 0
	}
	return s.skipped
}

// NearbyCandidates returns the curated places within radiusKm of the user,
// nearest first, with distances recomputed for this location. The returned
// slice is a fresh copy; callers may mutate it.
func (s *Store) NearbyCandidates(lat, lng, radiusKm float64) []model.Candidate {
	if s == nil {
		return nil
	}

	var nearby []model.Candidate
	for _, place := range s.places {
		d := geo.HaversineKm(lat, lng, place.Lat, place.Lng)
		if d > radiusKm {
			continue
		}
		place.DistanceKm = geo.RoundKm(d)
		nearby = append(nearby, place)
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby
}
