package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trdb-estimator/internal/config"
	"trdb-estimator/internal/georate"
	"trdb-estimator/internal/market"
	"trdb-estimator/internal/notify"
	"trdb-estimator/internal/pricing"
	"trdb-estimator/internal/storage"
)

// Store is the persistence surface the handlers need.
type Store interface {
	GetQuota(ctx context.Context, userID string, defaultLimit int) (*storage.QuotaRow, error)
	IncrementEstimateUsage(ctx context.Context, userID string, defaultLimit int) (*storage.QuotaRow, error)
	GetWallet(ctx context.Context, userID string) (*storage.Wallet, error)
	SpendCredits(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) (*storage.Wallet, error)
	UnlockFeature(ctx context.Context, userID, featureName string, cost decimal.Decimal) error
	SaveLead(ctx context.Context, lead storage.Lead) error
	ListLeads(ctx context.Context) ([]storage.Lead, error)
}

// RateLimiter counts hits inside a rolling window.
type RateLimiter interface {
	CountHit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Cache is a shared byte cache for validated market documents.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	table      *pricing.PriceTable
	markets    *market.Loader
	geo        *georate.Resolver
	store      Store
	limiter    RateLimiter
	cache      Cache
	dispatcher *notify.Dispatcher
}

func New(
	cfg *config.Config,
	table *pricing.PriceTable,
	markets *market.Loader,
	geo *georate.Resolver,
	store Store,
	limiter RateLimiter,
	cache Cache,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		table:      table,
		markets:    markets,
		geo:        geo,
		store:      store,
		limiter:    limiter,
		cache:      cache,
		dispatcher: dispatcher,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pricing", s.handlePricing)

		r.Get("/markets/{id}", s.handleGetMarket)
		r.Post("/markets/{id}/estimate", s.handleMarketEstimate)

		r.Get("/georates/cities", s.handleGeoCities)
		r.Get("/georates/zones", s.handleGeoZones)
		r.Post("/georates/estimate", s.handleGeoEstimate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/quota", s.handleQuota)
			r.Post("/estimates/track", s.handleTrackEstimate)
			r.Post("/wallet/spend", s.handleWalletSpend)
			r.Get("/leads", s.handleListLeads)
		})

		r.Post("/leads", s.handleLeads)
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.HTTPAddr))
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the calculation-layer error taxonomy onto HTTP
// status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrUnknownQualityTier),
		errors.Is(err, pricing.ErrNoBaselineForSelection):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pricing.ErrSchemaViolation):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, pricing.ErrDataUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, pricing.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, pricing.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "Insufficient funds or transaction failed")
	default:
		s.logger.Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
