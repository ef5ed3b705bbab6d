package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"go.uber.org/zap"

	"trdb-estimator/internal/pricing"
)

type pricingRequest struct {
	Market  string   `json:"market"`
	Quality string   `json:"quality"`
	Size    float64  `json:"size"`
	Options []string `json:"options"`
}

type breakdownLine struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Mult  float64 `json:"mult"`
}

type pricingResponse struct {
	Total        float64         `json:"total"`
	PerSqft      float64         `json:"perSqft"`
	FitoutBase   float64         `json:"fitoutBase"`
	MEPBase      float64         `json:"mepBase"`
	OptionsTotal float64         `json:"optionsTotal"`
	Breakdown    []breakdownLine `json:"breakdown"`
	// Low/High carry the band edges alongside the midpoint figures, so
	// downstream consumers get both the point estimate and the range.
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Checksum string  `json:"checksum"`
}

// handlePricing is the server-held pricing engine. The rate table never
// leaves the process; clients only receive computed results plus a
// keyed integrity checksum.
func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	count, err := s.limiter.CountHit(r.Context(), "ratelimit:pricing:"+ip, s.cfg.RateLimitWindow)
	if err != nil {
		s.logger.Error("Rate limit check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if count > s.cfg.RateLimit {
		s.logger.Warn("Rate limit exceeded", zap.String("ip", ip))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:      "Too many requests. Please try again later.",
			RetryAfter: int(s.cfg.RateLimitWindow.Seconds()),
		})
		return
	}

	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Market == "" || req.Quality == "" || req.Size == 0 {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	if !s.table.HasMarket(req.Market) {
		writeError(w, http.StatusBadRequest, "Invalid market")
		return
	}

	calcReq := pricing.Request{Size: req.Size, Quality: req.Quality, Options: req.Options}

	mid, err := pricing.ComputeCost(calcReq, s.table.Source(req.Market, pricing.PointMid))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	low, err := pricing.ComputeCost(calcReq, s.table.Source(req.Market, pricing.PointLow))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	high, err := pricing.ComputeCost(calcReq, s.table.Source(req.Market, pricing.PointHigh))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := pricingResponse{
		Total:      math.Round(mid.Total),
		PerSqft:    math.Round(mid.PerUnit),
		FitoutBase: math.Round(mid.Breakdown[0].Amount),
		MEPBase:    math.Round(mid.Breakdown[1].Amount),
		Low:        math.Round(low.Total),
		High:       math.Round(high.Total),
		Breakdown:  []breakdownLine{},
	}

	var optionsTotal float64
	for _, line := range mid.Breakdown[2:] {
		optionsTotal += line.Amount
		mult, _ := s.table.OptionMult(line.Key)
		resp.Breakdown = append(resp.Breakdown, breakdownLine{
			Label: s.table.OptionLabel(line.Key),
			Value: math.Round(line.Amount),
			Mult:  mult,
		})
	}
	resp.OptionsTotal = math.Round(optionsTotal)
	resp.Checksum = s.checksum(mid.Total, req.Size, req.Market, req.Quality)

	s.logger.Info("Pricing calculated",
		zap.String("market", req.Market),
		zap.String("quality", req.Quality),
		zap.Float64("size", req.Size),
		zap.String("ip", ip))

	writeJSON(w, http.StatusOK, resp)
}

// checksum is a keyed integrity signal over the calculation identity.
// It lets the client detect a tampered response, nothing more.
func (s *Server) checksum(total, size float64, marketID, quality string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.ChecksumSecret))
	fmt.Fprintf(mac, "%v-%v-%s-%s", total, size, marketID, quality)
	return hex.EncodeToString(mac.Sum(nil))
}
