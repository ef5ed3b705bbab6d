package api

// API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type PricingRequest struct {
	Market  string   `json:"market"`
	Quality string   `json:"quality"`
	Size    float64  `json:"size"`
	Options []string `json:"options"`
}

type BreakdownLine struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Mult  float64 `json:"mult"`
}

type PricingResponse struct {
	Total        float64         `json:"total"`
	PerSqft      float64         `json:"perSqft"`
	FitoutBase   float64         `json:"fitoutBase"`
	MEPBase      float64         `json:"mepBase"`
	OptionsTotal float64         `json:"optionsTotal"`
	Breakdown    []BreakdownLine `json:"breakdown"`
	Low          float64         `json:"low"`
	High         float64         `json:"high"`
	Checksum     string          `json:"checksum"`
}

type QuotaResponse struct {
	CanCreate bool   `json:"can_create"`
	Tier      string `json:"tier"`
	Status    string `json:"status"`
	Usage     struct {
		EstimatesUsed  int    `json:"estimates_used"`
		EstimatesLimit int    `json:"estimates_limit"`
		WeeklyPercent  int    `json:"weekly_percent"`
		WeekStart      string `json:"week_start"`
		DaysUntilReset int    `json:"days_until_reset"`
	} `json:"usage"`
	Wallet struct {
		Balance        float64 `json:"balance"`
		LifetimeEarned float64 `json:"lifetime_earned"`
		LifetimeSpent  float64 `json:"lifetime_spent"`
	} `json:"wallet"`
	UserEmail string `json:"user_email"`
}

type LeadRequest struct {
	Action       string        `json:"action"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Company      string        `json:"company,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Estimate     *LeadEstimate `json:"estimate,omitempty"`
	EstimateName string        `json:"estimateName,omitempty"`
	Source       string        `json:"source,omitempty"`
	UserID       string        `json:"userId,omitempty"`
}

type LeadEstimate struct {
	Market   string  `json:"market"`
	Size     float64 `json:"size"`
	Unit     string  `json:"unit"`
	Quality  string  `json:"quality"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

type LeadResponse struct {
	Success  bool            `json:"success"`
	LeadID   string          `json:"leadId"`
	Score    int             `json:"score"`
	Tier     string          `json:"tier"`
	Channels map[string]bool `json:"channels"`
}

type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Market    string    `json:"market,omitempty"`
	Size      float64   `json:"size,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Quality   string    `json:"quality,omitempty"`
	Total     float64   `json:"total,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Action    string    `json:"action"`
	Score     int       `json:"score"`
	Tier      string    `json:"tier"`
	Notes     string    `json:"notes,omitempty"`
	Source    string    `json:"source"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type LeadListResponse struct {
	Leads []Lead `json:"leads"`
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) GetPricing(ctx context.Context, req PricingRequest) (*PricingResponse, error) {
	var resp PricingResponse
	if err := c.post(ctx, "/api/v1/pricing", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetQuota(ctx context.Context) (*QuotaResponse, error) {
	var resp QuotaResponse
	if err := c.get(ctx, "/api/v1/quota", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitLead(ctx context.Context, req LeadRequest) (*LeadResponse, error) {
	var resp LeadResponse
	if err := c.post(ctx, "/api/v1/leads", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListLeads(ctx context.Context) (*LeadListResponse, error) {
	var resp LeadListResponse
	if err := c.get(ctx, "/api/v1/leads", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
