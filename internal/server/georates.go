package server

import (
	"encoding/json"
	"net/http"

	"trdb-estimator/internal/georate"
)

type geoEstimateRequest struct {
	Country string             `json:"country"`
	City    string             `json:"city"`
	Zone    string             `json:"zone"`
	Quality string             `json:"quality"`
	Size    float64            `json:"size"`
	Options map[string]float64 `json:"options"`
}

type geoEstimateResponse struct {
	Unit   *georate.UnitRates `json:"unit"`
	Totals *georate.Totals    `json:"totals"`
}

func (s *Server) handleGeoCities(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: country")
		return
	}
	cities := s.geo.ListCities(country)
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"cities": cities})
}

func (s *Server) handleGeoZones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	country, city := q.Get("country"), q.Get("city")
	if country == "" || city == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters: country, city")
		return
	}
	writeJSON(w, http.StatusOK, s.geo.ListZones(country, city))
}

// handleGeoEstimate resolves zone-adjusted unit rates and the
// three-point totals in one round trip.
func (s *Server) handleGeoEstimate(w http.ResponseWriter, r *http.Request) {
	var req geoEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Country == "" || req.City == "" || req.Quality == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	unit, err := s.geo.UnitRates(georate.RateQuery{
		Country: req.Country,
		City:    req.City,
		Zone:    req.Zone,
		Quality: req.Quality,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	totals, err := georate.ComputeTotals(unit.Rates, req.Size, req.Options)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, geoEstimateResponse{Unit: unit, Totals: totals})
}
