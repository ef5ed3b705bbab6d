package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trdb-estimator/internal/leads"
	"trdb-estimator/internal/storage"
)

type leadResponse struct {
	Success  bool            `json:"success"`
	LeadID   string          `json:"leadId"`
	Score    int             `json:"score"`
	Tier     string          `json:"tier"`
	Channels map[string]bool `json:"channels"`
}

// handleLeads captures a lead and fans it out to the notification
// channels. The estimate snapshot in the payload is already computed
// and displayed; channel failures are reported but never invalidate it.
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	var payload leads.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := leads.Validate(payload); err != nil {
		s.writeDomainError(w, err)
		return
	}

	score, tier := leads.Score(payload)

	lead := storage.Lead{
		ID:        uuid.NewString(),
		Name:      payload.Name,
		Email:     payload.Email,
		Company:   payload.Company,
		Phone:     leads.NormalizePhoneNumber(payload.Phone),
		Action:    payload.Action,
		Score:     score,
		Tier:      tier,
		Notes:     payload.Notes,
		Source:    payload.Source,
		UserID:    payload.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if lead.Source == "" {
		lead.Source = "Direct"
	}
	if lead.UserID == "" {
		lead.UserID = "Guest"
	}
	if est := payload.Estimate; est != nil {
		lead.Market = est.Market
		lead.Size = est.Size
		lead.Unit = est.Unit
		lead.Quality = est.Quality
		lead.Total = est.Total
		lead.Currency = est.Currency
		if lead.Unit == "" {
			lead.Unit = "sqft"
		}
	}

	if err := s.store.SaveLead(r.Context(), lead); err != nil {
		s.logger.Error("Failed to save lead", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	channels := s.dispatcher.Dispatch(lead, payload)

	s.logger.Info("Lead captured",
		zap.String("lead_id", lead.ID),
		zap.String("tier", tier),
		zap.Int("score", score))

	writeJSON(w, http.StatusOK, leadResponse{
		Success:  true,
		LeadID:   lead.ID,
		Score:    score,
		Tier:     tier,
		Channels: channels,
	})
}

type leadListResponse struct {
	Leads []storage.Lead `json:"leads"`
}

// handleListLeads returns captured leads, newest first.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListLeads(r.Context())
	if err != nil {
		s.logger.Error("Failed to list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if list == nil {
		list = []storage.Lead{}
	}
	writeJSON(w, http.StatusOK, leadListResponse{Leads: list})
}
