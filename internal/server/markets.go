package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trdb-estimator/internal/pricing"
)

type marketEstimateRequest struct {
	Size    float64  `json:"size"`
	Unit    string   `json:"unit,omitempty"`
	Quality string   `json:"quality"`
	Options []string `json:"options"`
}

type marketLine struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type marketEstimateResponse struct {
	MarketID  string       `json:"marketId"`
	Currency  string       `json:"currency"`
	Base      float64      `json:"base"`
	Total     float64      `json:"total"`
	PerSqft   float64      `json:"perSqft"`
	Breakdown []marketLine `json:"breakdown"`
}

// handleGetMarket serves a validated market configuration document,
// caching it in the shared store so repeated fetches skip the origin.
func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cacheKey := "cache:market:" + id

	if s.cache != nil {
		if data, err := s.cache.Get(r.Context(), cacheKey); err == nil && len(data) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	m, err := s.markets.Load(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := s.cache.Set(r.Context(), cacheKey, data, s.cfg.Redis.TTL); err != nil {
				s.logger.Warn("Market cache write failed",
					zap.String("market_id", id),
					zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, m)
}

// handleMarketEstimate runs the canonical engine against a tiered
// market configuration. Amounts are returned unrounded; rounding is the
// caller's presentation concern.
func (s *Server) handleMarketEstimate(w http.ResponseWriter, r *http.Request) {
	m, err := s.markets.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var req marketEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	size, err := pricing.ToSqft(req.Size, req.Unit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	result, err := pricing.ComputeCost(pricing.Request{
		Size:    size,
		Quality: req.Quality,
		Options: req.Options,
	}, m)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := marketEstimateResponse{
		MarketID:  m.ID,
		Currency:  m.Currency,
		Base:      result.Base,
		Total:     result.Total,
		PerSqft:   result.PerUnit,
		Breakdown: make([]marketLine, 0, len(result.Breakdown)),
	}
	for _, line := range result.Breakdown {
		resp.Breakdown = append(resp.Breakdown, marketLine{
			Key:    line.Key,
			Label:  m.SliceLabel(line.Key),
			Amount: line.Amount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
