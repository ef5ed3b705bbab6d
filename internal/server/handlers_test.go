package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trdb-estimator/internal/pricing"
	"trdb-estimator/internal/storage"
)

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHandlePricing(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/pricing", "", pricingRequest{
		Market:  "uae-dubai",
		Quality: "standard",
		Size:    1000,
		Options: []string{"furniture"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp pricingResponse
	decodeBody(t, rec, &resp)

	// uae-dubai standard midpoint 260: 65/35 fit-out/MEP split, furniture 13%.
	if resp.FitoutBase != math.Round(0.65*260*1000) {
		t.Errorf("Incorrect fitoutBase, got %v", resp.FitoutBase)
	}
	if resp.MEPBase != math.Round(0.35*260*1000) {
		t.Errorf("Incorrect mepBase, got %v", resp.MEPBase)
	}
	if resp.Total != math.Round(260*1000*1.13) {
		t.Errorf("Incorrect total, got %v", resp.Total)
	}
	if resp.Low != math.Round(223*1000*1.13) {
		t.Errorf("Incorrect low, got %v", resp.Low)
	}
	if resp.High != math.Round(297*1000*1.13) {
		t.Errorf("Incorrect high, got %v", resp.High)
	}
	if len(resp.Breakdown) != 1 {
		t.Fatalf("Incorrect breakdown length, got %d", len(resp.Breakdown))
	}
	if resp.Breakdown[0].Label != "Furniture Supply" || resp.Breakdown[0].Mult != 0.13 {
		t.Errorf("Incorrect breakdown line: %+v", resp.Breakdown[0])
	}
	if len(resp.Checksum) != 64 {
		t.Errorf("Expected hex sha256 checksum, got %q", resp.Checksum)
	}
}

func TestHandlePricing_EmptyBreakdownIsArray(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/pricing", "", pricingRequest{
		Market:  "uae-dubai",
		Quality: "standard",
		Size:    1000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"breakdown":[]`) {
		t.Errorf("Breakdown should encode as empty array, body: %s", rec.Body.String())
	}
}

func TestHandlePricing_Validation(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	tests := []struct {
		name string
		req  pricingRequest
		want int
	}{
		{"missing params", pricingRequest{Market: "uae-dubai"}, http.StatusBadRequest},
		{"unknown market", pricingRequest{Market: "uk-london", Quality: "standard", Size: 100}, http.StatusBadRequest},
		{"unknown quality", pricingRequest{Market: "uae-dubai", Quality: "deluxe", Size: 100}, http.StatusUnprocessableEntity},
		{"negative size", pricingRequest{Market: "uae-dubai", Quality: "standard", Size: -5}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, "POST", "/api/v1/pricing", "", tt.req)
			if rec.Code != tt.want {
				t.Errorf("Incorrect status, got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlePricing_RateLimited(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{count: 100})

	rec := doRequest(t, srv, "POST", "/api/v1/pricing", "", pricingRequest{
		Market:  "uae-dubai",
		Quality: "standard",
		Size:    1000,
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Incorrect status, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.RetryAfter != int(time.Hour.Seconds()) {
		t.Errorf("Incorrect retryAfter, got %d", resp.RetryAfter)
	}
}

func TestHandleMarketEstimate(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/markets/uae-dubai/estimate", "", marketEstimateRequest{
		Size:    4900,
		Quality: "standard",
		Options: []string{"furniture"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp marketEstimateResponse
	decodeBody(t, rec, &resp)
	if resp.MarketID != "uae-dubai" || resp.Currency != "AED" {
		t.Errorf("Incorrect market metadata: %+v", resp)
	}
	if math.Abs(resp.Total-1641500) > 1e-6 {
		t.Errorf("Incorrect total, got %v, want 1641500", resp.Total)
	}
	if len(resp.Breakdown) != 3 {
		t.Fatalf("Incorrect breakdown length, got %d", len(resp.Breakdown))
	}
	if resp.Breakdown[0].Label != "Fit-out works" {
		t.Errorf("Incorrect slice label: %q", resp.Breakdown[0].Label)
	}
}

func TestHandleMarketEstimate_SquareMeters(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	inSqft := doRequest(t, srv, "POST", "/api/v1/markets/uae-dubai/estimate", "", marketEstimateRequest{
		Size:    1076.39,
		Quality: "standard",
	})
	inM2 := doRequest(t, srv, "POST", "/api/v1/markets/uae-dubai/estimate", "", marketEstimateRequest{
		Size:    100,
		Unit:    "m2",
		Quality: "standard",
	})
	if inSqft.Code != http.StatusOK || inM2.Code != http.StatusOK {
		t.Fatalf("Incorrect status: sqft %d, m2 %d", inSqft.Code, inM2.Code)
	}

	var a, b marketEstimateResponse
	decodeBody(t, inSqft, &a)
	decodeBody(t, inM2, &b)
	if math.Abs(a.Total-b.Total) > 1e-6 {
		t.Errorf("100 m² and 1076.39 sqft disagree: %v vs %v", a.Total, b.Total)
	}

	bad := doRequest(t, srv, "POST", "/api/v1/markets/uae-dubai/estimate", "", marketEstimateRequest{
		Size:    100,
		Unit:    "acres",
		Quality: "standard",
	})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("Unknown unit: got %d, want 400", bad.Code)
	}
}

func TestHandleGetMarket_Cached(t *testing.T) {
	cache := newFakeCache()
	srv := newTestServerWithCache(t, &fakeStore{}, &fakeLimiter{}, cache)

	rec := doRequest(t, srv, "GET", "/api/v1/markets/uae-dubai", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d", rec.Code)
	}
	if cache.sets != 1 {
		t.Fatalf("Expected one cache write, got %d", cache.sets)
	}
	if _, ok := cache.entries["cache:market:uae-dubai"]; !ok {
		t.Fatal("Market document not cached under expected key")
	}

	// Second fetch must be served from the cache even if the origin
	// document disappears.
	cache.entries["cache:market:uae-dubai"] = []byte(`{"currency":"AED","id":"uae-dubai"}`)
	rec = doRequest(t, srv, "GET", "/api/v1/markets/uae-dubai", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect cached status, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":"uae-dubai"`) {
		t.Errorf("Cached bytes not served verbatim: %s", rec.Body.String())
	}
	if cache.sets != 1 {
		t.Errorf("Cache hit must not rewrite the entry, got %d writes", cache.sets)
	}
}

func TestHandleListLeads(t *testing.T) {
	store := &fakeStore{savedLeads: []storage.Lead{
		{ID: "lead-1", Name: "Amal Haddad", Email: "amal@example.com", Tier: "HOT", Score: 85},
	}}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/leads", testToken("admin-1", "admin@example.com"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp leadListResponse
	decodeBody(t, rec, &resp)
	if len(resp.Leads) != 1 || resp.Leads[0].ID != "lead-1" {
		t.Errorf("Incorrect lead list: %+v", resp.Leads)
	}

	rec = doRequest(t, srv, "GET", "/api/v1/leads", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Listing without token: got %d, want 401", rec.Code)
	}
}

func TestHandleListLeads_Empty(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/leads", testToken("admin-1", "admin@example.com"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"leads":[]`) {
		t.Errorf("Empty list should encode as array, body: %s", rec.Body.String())
	}
}

func TestHandleGetMarket_Missing(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/markets/atlantis", "", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Incorrect status, got %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestHandleGeoEstimate(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/georates/estimate", "", geoEstimateRequest{
		Country: "UAE",
		City:    "Dubai",
		Quality: "standard",
		Size:    1500,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp geoEstimateResponse
	decodeBody(t, rec, &resp)
	if resp.Unit.Rates.Likely != 250 {
		t.Errorf("Incorrect unit rate, got %v", resp.Unit.Rates.Likely)
	}
	if resp.Totals.Likely != 375000 {
		t.Errorf("Incorrect total, got %v", resp.Totals.Likely)
	}
}

func TestHandleGeoEstimate_NoBaseline(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/georates/estimate", "", geoEstimateRequest{
		Country: "UAE",
		City:    "Dubai",
		Quality: "imperial",
		Size:    1500,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Incorrect status, got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestHandleGeoCities(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/georates/cities?country=UAE", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d", rec.Code)
	}

	var resp map[string][]string
	decodeBody(t, rec, &resp)
	if len(resp["cities"]) != 1 || resp["cities"][0] != "Dubai" {
		t.Errorf("Incorrect cities: %v", resp["cities"])
	}

	rec = doRequest(t, srv, "GET", "/api/v1/georates/cities", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Missing country: got %d, want 400", rec.Code)
	}
}

func TestHandleQuota(t *testing.T) {
	store := &fakeStore{
		quota: &storage.QuotaRow{
			UserID:         "user-1",
			WeekStart:      time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			EstimatesUsed:  1,
			EstimatesLimit: 3,
		},
		wallet: &storage.Wallet{
			UserID:         "user-1",
			Balance:        decimal.NewFromInt(120),
			LifetimeEarned: decimal.NewFromInt(200),
			LifetimeSpent:  decimal.NewFromInt(80),
		},
	}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/quota", testToken("user-1", "u@example.com"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp quotaResponse
	decodeBody(t, rec, &resp)
	if !resp.CanCreate {
		t.Error("Expected can_create true")
	}
	if resp.Usage.EstimatesUsed != 1 || resp.Usage.EstimatesLimit != 3 {
		t.Errorf("Incorrect usage: %+v", resp.Usage)
	}
	if resp.Usage.WeeklyPercent != 33 {
		t.Errorf("Incorrect weekly percent, got %d, want 33", resp.Usage.WeeklyPercent)
	}
	if resp.Usage.WeekStart != "2026-08-24" {
		t.Errorf("Incorrect week start, got %q", resp.Usage.WeekStart)
	}
	if resp.Wallet.Balance != 120 {
		t.Errorf("Incorrect balance, got %v", resp.Wallet.Balance)
	}
	if resp.UserEmail != "u@example.com" {
		t.Errorf("Incorrect email, got %q", resp.UserEmail)
	}
}

func TestHandleQuota_Exhausted(t *testing.T) {
	store := &fakeStore{
		quota: &storage.QuotaRow{
			UserID:         "user-1",
			WeekStart:      storage.WeekStart(time.Now()),
			EstimatesUsed:  3,
			EstimatesLimit: 3,
		},
	}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/quota", testToken("user-1", "u@example.com"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d", rec.Code)
	}

	var resp quotaResponse
	decodeBody(t, rec, &resp)
	if resp.CanCreate {
		t.Error("Expected can_create false when quota exhausted")
	}
}

func TestHandleQuota_Unauthorized(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "GET", "/api/v1/quota", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("No token: got %d, want 401", rec.Code)
	}

	rec = doRequest(t, srv, "GET", "/api/v1/quota", "user-1:u@example.com:forged", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Forged token: got %d, want 401", rec.Code)
	}
}

func TestHandleTrackEstimate(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/estimates/track", testToken("user-1", "u@example.com"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp trackResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Usage.EstimatesUsed != 1 {
		t.Errorf("Incorrect track response: %+v", resp)
	}
}

func TestHandleTrackEstimate_QuotaExceeded(t *testing.T) {
	store := &fakeStore{quotaErr: pricing.ErrQuotaExceeded}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/estimates/track", testToken("user-1", "u@example.com"), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Incorrect status, got %d, want 429", rec.Code)
	}
}

func TestHandleWalletSpend(t *testing.T) {
	store := &fakeStore{
		wallet: &storage.Wallet{
			UserID:  "user-1",
			Balance: decimal.NewFromInt(100),
		},
	}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/wallet/spend", testToken("user-1", "u@example.com"), spendRequest{
		Amount:      25,
		Description: "Unlock detailed report",
		FeatureName: "detailed_report",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp spendResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Spent != 25 {
		t.Errorf("Incorrect spend response: %+v", resp)
	}
	if resp.Wallet.Balance != 75 {
		t.Errorf("Incorrect balance, got %v, want 75", resp.Wallet.Balance)
	}
	if len(store.unlocked) != 1 || store.unlocked[0] != "detailed_report" {
		t.Errorf("Feature unlock not recorded: %v", store.unlocked)
	}
}

func TestHandleWalletSpend_Validation(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})
	token := testToken("user-1", "u@example.com")

	rec := doRequest(t, srv, "POST", "/api/v1/wallet/spend", token, spendRequest{Amount: 0, Description: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Zero amount: got %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, "POST", "/api/v1/wallet/spend", token, spendRequest{Amount: 10})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Missing description: got %d, want 400", rec.Code)
	}
}

func TestHandleWalletSpend_InsufficientFunds(t *testing.T) {
	store := &fakeStore{spendErr: pricing.ErrInsufficientFunds}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/wallet/spend", testToken("user-1", "u@example.com"), spendRequest{
		Amount:      500,
		Description: "Unlock detailed report",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Incorrect status, got %d, want 400", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "Insufficient funds or transaction failed" {
		t.Errorf("Incorrect error message: %q", resp.Error)
	}
}

func TestHandleLeads(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/leads", "", map[string]any{
		"action": "email",
		"name":   "Amal Haddad",
		"email":  "amal@example.com",
		"phone":  "+971 50 123 4567",
		"estimate": map[string]any{
			"market":   "uae-dubai",
			"size":     4900,
			"quality":  "premium",
			"total":    2500000,
			"currency": "AED",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Incorrect status, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp leadResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.LeadID == "" {
		t.Errorf("Incorrect lead response: %+v", resp)
	}
	if resp.Tier != "HOT" {
		t.Errorf("Incorrect tier, got %q, want HOT", resp.Tier)
	}

	if len(store.savedLeads) != 1 {
		t.Fatalf("Lead not saved, got %d leads", len(store.savedLeads))
	}
	saved := store.savedLeads[0]
	if saved.Phone != "+971501234567" {
		t.Errorf("Phone not normalized: %q", saved.Phone)
	}
	if saved.Source != "Direct" || saved.UserID != "Guest" || saved.Unit != "sqft" {
		t.Errorf("Defaults not applied: source %q, userId %q, unit %q", saved.Source, saved.UserID, saved.Unit)
	}
}

func TestHandleLeads_Invalid(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/leads", "", map[string]any{
		"action": "pdf",
		"name":   "Amal Haddad",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Missing email: got %d, want 400", rec.Code)
	}
}

func TestHandleLeads_SaveFailure(t *testing.T) {
	store := &fakeStore{saveLeadErr: pricing.ErrDataUnavailable}
	srv := newTestServer(t, store, &fakeLimiter{})

	rec := doRequest(t, srv, "POST", "/api/v1/leads", "", map[string]any{
		"action": "pdf",
		"name":   "Amal Haddad",
		"email":  "amal@example.com",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Save failure: got %d, want 500", rec.Code)
	}
}
