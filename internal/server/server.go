// Package server exposes the triage and placement engine over REST. The
// surface mirrors what the voice frontend consumes: one turn endpoint, raw
// nearby/open-status lookups, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carepath/carepath/internal/model"
	"github.com/carepath/carepath/internal/pipeline"
	"github.com/carepath/carepath/internal/places"
	"github.com/carepath/carepath/internal/region"
)

// Raw lookup bounds. The turn pipeline has its own limits; these guard the
// direct endpoints.
const (
	emergencyRadiusMaxKm = 50.0
	emergencyLimitDef    = 10
	emergencyLimitMax    = 30

	hospitalRadiusMaxKm = 20.0
	hospitalLimitDef    = 20
	hospitalLimitMax    = 50
)

// TurnRunner runs one voice turn. Production passes *pipeline.Pipeline.
type TurnRunner interface {
	RunTurn(ctx context.Context, req pipeline.TurnRequest) (*model.TurnResult, error)
}

// Server holds the handlers' dependencies
type Server struct {
	cfg    *model.Config
	runner TurnRunner
	places pipeline.PlacesClient
}

// New creates a server. places may be nil when no service key is configured;
// the raw lookup endpoints then answer 503.
func New(cfg *model.Config, runner TurnRunner, placesClient pipeline.PlacesClient) *Server {
	return &Server{
		cfg:    cfg,
		runner: runner,
		places: placesClient,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/voice-turn", s.handleVoiceTurn)
	mux.HandleFunc("GET /api/emergency/nearby", s.handleEmergencyNearby)
	mux.HandleFunc("GET /api/hospitals/nearby", s.handleHospitalsNearby)
	mux.HandleFunc("GET /api/pharmacy/open-status", s.handlePharmacyOpenStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withCORS(mux)
}

// Run serves until ctx is canceled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type turnBody struct {
	Transcript  string   `json:"transcript"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Q0          string   `json:"q0"`
	Q1          string   `json:"q1"`
	RoadAddress string   `json:"road_address"`
	LotAddress  string   `json:"lot_address"`
}

func (s *Server) handleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	var body turnBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}

	result, err := s.runner.RunTurn(r.Context(), pipeline.TurnRequest{
		Transcript:  body.Transcript,
		Lat:         body.Lat,
		Lng:         body.Lng,
		Province:    body.Q0,
		District:    body.Q1,
		RoadAddress: body.RoadAddress,
		LotAddress:  body.LotAddress,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyTranscript) {
			writeError(w, http.StatusUnprocessableEntity, "transcript is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEmergencyNearby(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseNearby(r, s.cfg.Places.EmergencyRadiusKm, emergencyRadiusMaxKm, emergencyLimitDef, emergencyLimitMax)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondNearby(w, r, q, func(ctx context.Context) ([]model.Candidate, error) {
		return s.places.NearbyEmergency(ctx, q)
	})
}

func (s *Server) handleHospitalsNearby(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseNearby(r, s.cfg.Places.HospitalRadiusKm, hospitalRadiusMaxKm, hospitalLimitDef, hospitalLimitMax)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondNearby(w, r, q, func(ctx context.Context) ([]model.Candidate, error) {
		return s.places.NearbyHospitals(ctx, q)
	})
}

func (s *Server) respondNearby(w http.ResponseWriter, r *http.Request, q places.NearbyQuery, fetch func(ctx context.Context) ([]model.Candidate, error)) {
	if s.places == nil {
		writeError(w, http.StatusServiceUnavailable, "data.go.kr service key is not configured")
		return
	}

	candidates, err := fetch(r.Context())
	if err != nil {
		if errors.Is(err, places.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "data.go.kr service key is not configured")
			return
		}
		writeError(w, http.StatusBadGateway, "upstream place lookup failed")
		return
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"places": candidates,
		"count":  len(candidates),
	})
}

func (s *Server) handlePharmacyOpenStatus(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	names := splitNames(params.Get("names"))
	if len(names) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "names is required")
		return
	}

	atHHMM := -1
	if raw := params.Get("now"); raw != "" {
		v, err := parseHHMMParam(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		atHHMM = v
	}

	holiday := false
	if raw := params.Get("holiday"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "holiday must be a boolean")
			return
		}
		holiday = v
	}

	regionKey, err := s.resolveRegionParams(params.Get("q0"), params.Get("q1"), params.Get("q1_fallback"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if s.places == nil {
		writeError(w, http.StatusServiceUnavailable, "data.go.kr service key is not configured")
		return
	}

	statuses, err := s.places.PharmacyOpenStatus(r.Context(), places.OpenStatusQuery{
		Region:  regionKey,
		Names:   names,
		AtHHMM:  atHHMM,
		Holiday: holiday,
	})
	if err != nil {
		if errors.Is(err, places.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "data.go.kr service key is not configured")
			return
		}
		writeError(w, http.StatusBadGateway, "upstream place lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"statuses": statuses,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseNearby validates the shared lat/lng/radius/limit/region parameters
func (s *Server) parseNearby(r *http.Request, defaultRadius, maxRadius float64, defaultLimit, maxLimit int) (places.NearbyQuery, error) {
	params := r.URL.Query()

	lat, latErr := strconv.ParseFloat(params.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(params.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		return places.NearbyQuery{}, fmt.Errorf("lat and lng are required numbers")
	}

	radius := defaultRadius
	if raw := params.Get("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > maxRadius {
			return places.NearbyQuery{}, fmt.Errorf("radius_km must be in (0, %g]", maxRadius)
		}
		radius = v
	}

	limit := defaultLimit
	if raw := params.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			return places.NearbyQuery{}, fmt.Errorf("limit must be in [1, %d]", maxLimit)
		}
		limit = v
	}

	regionKey, err := s.resolveRegionParams(params.Get("q0"), params.Get("q1"), "")
	if err != nil {
		return places.NearbyQuery{}, err
	}

	return places.NearbyQuery{
		Lat:      lat,
		Lng:      lng,
		Region:   regionKey,
		RadiusKm: radius,
		Limit:    limit,
	}, nil
}

// resolveRegionParams normalizes explicit q0/q1 query parameters, falling
// back to the configured defaults when neither is given
func (s *Server) resolveRegionParams(q0, q1, q1Fallback string) (model.RegionKey, error) {
	province := s.cfg.Region.DefaultProvince
	district := strings.TrimSpace(q1)

	if q0 = strings.TrimSpace(q0); q0 != "" {
		canonical := region.Canonical(q0)
		if canonical == "" {
			return model.RegionKey{}, fmt.Errorf("unknown province/city: %s", q0)
		}
		province = canonical
	} else if district == "" {
		district = s.cfg.Region.DefaultDistrict
	}

	return model.RegionKey{
		Province:         province,
		District:         district,
		DistrictFallback: strings.TrimSpace(q1Fallback),
	}, nil
}

// parseHHMMParam accepts only the 4-digit clock form ("0930", "2130")
func parseHHMMParam(raw string) (int, error) {
	if len(raw) != 4 {
		return 0, fmt.Errorf("now must be a 4-digit HHMM value")
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("now must be a 4-digit HHMM value")
		}
	}
	v, _ := strconv.Atoi(raw)
	return v, nil
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// withCORS applies the configured origin allowlist. Credentials are allowed
// because the dev frontends send session cookies.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.Server.AllowedOrigins))
	for _, origin := range s.cfg.Server.AllowedOrigins {
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
