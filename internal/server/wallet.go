package server

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type spendRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	FeatureName string  `json:"feature_name"`
}

type spendResponse struct {
	Success         bool       `json:"success"`
	Spent           float64    `json:"spent"`
	Description     string     `json:"description"`
	FeatureUnlocked string     `json:"feature_unlocked,omitempty"`
	Wallet          walletInfo `json:"wallet"`
}

// handleWalletSpend deducts credits from the caller's wallet, recording
// an optional feature unlock. The deduction is atomic; a failed unlock
// record is logged but does not undo the spend.
func (s *Server) handleWalletSpend(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "Description required")
		return
	}

	amount := decimal.NewFromFloat(req.Amount)
	wallet, err := s.store.SpendCredits(r.Context(), id.UserID, amount, req.Description, req.FeatureName)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if req.FeatureName != "" {
		if err := s.store.UnlockFeature(r.Context(), id.UserID, req.FeatureName, amount); err != nil {
			s.logger.Error("Feature unlock record failed",
				zap.String("user_id", id.UserID),
				zap.String("feature", req.FeatureName),
				zap.Error(err))
		}
	}

	s.logger.Info("Credits spent",
		zap.String("user_id", id.UserID),
		zap.Float64("amount", req.Amount))

	balance, _ := wallet.Balance.Float64()
	spent, _ := wallet.LifetimeSpent.Float64()

	writeJSON(w, http.StatusOK, spendResponse{
		Success:         true,
		Spent:           req.Amount,
		Description:     req.Description,
		FeatureUnlocked: req.FeatureName,
		Wallet: walletInfo{
			Balance:       balance,
			LifetimeSpent: spent,
		},
	})
}
