package server

import (
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trdb-estimator/internal/storage"
)

type usageInfo struct {
	EstimatesUsed  int    `json:"estimates_used"`
	EstimatesLimit int    `json:"estimates_limit"`
	WeeklyPercent  int    `json:"weekly_percent"`
	WeekStart      string `json:"week_start"`
	LastEstimateAt string `json:"last_estimate_at,omitempty"`
	DaysUntilReset int    `json:"days_until_reset"`
}

type walletInfo struct {
	Balance        float64 `json:"balance"`
	LifetimeEarned float64 `json:"lifetime_earned,omitempty"`
	LifetimeSpent  float64 `json:"lifetime_spent"`
}

type quotaResponse struct {
	CanCreate bool       `json:"can_create"`
	Tier      string     `json:"tier"`
	Status    string     `json:"status"`
	Usage     usageInfo  `json:"usage"`
	Wallet    walletInfo `json:"wallet"`
	UserEmail string     `json:"user_email"`
}

// handleQuota reports the caller's weekly estimate allowance and wallet
// balance.
func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	quota, err := s.store.GetQuota(r.Context(), id.UserID, s.cfg.WeeklyEstimateLimit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	wallet, err := s.store.GetWallet(r.Context(), id.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	balance, _ := wallet.Balance.Float64()
	earned, _ := wallet.LifetimeEarned.Float64()
	spent, _ := wallet.LifetimeSpent.Float64()

	usage := usageInfo{
		EstimatesUsed:  quota.EstimatesUsed,
		EstimatesLimit: quota.EstimatesLimit,
		WeekStart:      quota.WeekStart.Format("2006-01-02"),
		DaysUntilReset: storage.DaysUntilReset(time.Now()),
	}
	if quota.EstimatesLimit > 0 {
		usage.WeeklyPercent = int(math.Round(float64(quota.EstimatesUsed) / float64(quota.EstimatesLimit) * 100))
	}
	if quota.LastEstimateAt.Valid {
		usage.LastEstimateAt = quota.LastEstimateAt.Time.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, quotaResponse{
		CanCreate: quota.EstimatesUsed < quota.EstimatesLimit,
		Tier:      "free",
		Status:    "active",
		Usage:     usage,
		Wallet: walletInfo{
			Balance:        balance,
			LifetimeEarned: earned,
			LifetimeSpent:  spent,
		},
		UserEmail: id.Email,
	})
}

type trackResponse struct {
	Success bool      `json:"success"`
	Usage   usageInfo `json:"usage"`
}

// handleTrackEstimate records one estimate creation against the weekly
// quota.
func (s *Server) handleTrackEstimate(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	quota, err := s.store.IncrementEstimateUsage(r.Context(), id.UserID, s.cfg.WeeklyEstimateLimit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("Estimate tracked",
		zap.String("user_id", id.UserID),
		zap.Int("estimates_used", quota.EstimatesUsed))

	usage := usageInfo{
		EstimatesUsed:  quota.EstimatesUsed,
		EstimatesLimit: quota.EstimatesLimit,
		WeekStart:      quota.WeekStart.Format("2006-01-02"),
		DaysUntilReset: storage.DaysUntilReset(time.Now()),
	}
	if quota.EstimatesLimit > 0 {
		usage.WeeklyPercent = int(math.Round(float64(quota.EstimatesUsed) / float64(quota.EstimatesLimit) * 100))
	}
	if quota.LastEstimateAt.Valid {
		usage.LastEstimateAt = quota.LastEstimateAt.Time.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, trackResponse{Success: true, Usage: usage})
}
