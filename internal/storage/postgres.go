package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trdb-estimator/internal/config"
	"trdb-estimator/internal/pricing"
)

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// QuotaRow is one user's weekly estimate-creation allowance.
type QuotaRow struct {
	UserID         string       `db:"user_id"`
	WeekStart      time.Time    `db:"week_start"`
	EstimatesUsed  int          `db:"estimates_used"`
	EstimatesLimit int          `db:"estimates_limit"`
	LastEstimateAt sql.NullTime `db:"last_estimate_at"`
}

// Wallet is a user's spendable credit balance.
type Wallet struct {
	UserID         string          `db:"user_id"`
	Balance        decimal.Decimal `db:"balance"`
	LifetimeEarned decimal.Decimal `db:"lifetime_earned"`
	LifetimeSpent  decimal.Decimal `db:"lifetime_spent"`
}

// Lead is a captured prospect with the estimate snapshot attached.
type Lead struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Company   string    `db:"company" json:"company,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Market    string    `db:"market" json:"market,omitempty"`
	Size      float64   `db:"size" json:"size,omitempty"`
	Unit      string    `db:"unit" json:"unit,omitempty"`
	Quality   string    `db:"quality" json:"quality,omitempty"`
	Total     float64   `db:"total" json:"total,omitempty"`
	Currency  string    `db:"currency" json:"currency,omitempty"`
	Action    string    `db:"action" json:"action"`
	Score     int       `db:"score" json:"score"`
	Tier      string    `db:"tier" json:"tier"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	Source    string    `db:"source" json:"source"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func NewPostgresStorage(ctx context.Context, cfg config.Database, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{db: db, logger: logger}, nil
}

// WeekStart truncates t to the Monday of its week, midnight UTC.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	monday := t.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntilReset counts the days from t until the next Monday.
func DaysUntilReset(t time.Time) int {
	d := 7 - (int(t.UTC().Weekday())+6)%7
	if d == 0 {
		return 7
	}
	return d
}

// GetQuota returns the current week's quota row, synthesizing an unused
// row with the default limit when none exists yet.
func (s *PostgresStorage) GetQuota(ctx context.Context, userID string, defaultLimit int) (*QuotaRow, error) {
	week := WeekStart(time.Now())

	const query = `
        SELECT user_id, week_start, estimates_used, estimates_limit, last_estimate_at
        FROM user_tokens
        WHERE user_id = $1 AND week_start = $2
    `

	var row QuotaRow
	err := s.db.GetContext(ctx, &row, query, userID, week)
	if errors.Is(err, sql.ErrNoRows) {
		return &QuotaRow{
			UserID:         userID,
			WeekStart:      week,
			EstimatesUsed:  0,
			EstimatesLimit: defaultLimit,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}
	return &row, nil
}

// IncrementEstimateUsage records one estimate creation inside the weekly
// window. It fails with ErrQuotaExceeded once the limit is reached,
// leaving the counter untouched.
func (s *PostgresStorage) IncrementEstimateUsage(ctx context.Context, userID string, defaultLimit int) (*QuotaRow, error) {
	week := WeekStart(time.Now())

	const query = `
        INSERT INTO user_tokens (user_id, week_start, estimates_used, estimates_limit, last_estimate_at)
        VALUES ($1, $2, 1, $3, now())
        ON CONFLICT (user_id, week_start) DO UPDATE
        SET estimates_used = user_tokens.estimates_used + 1,
            last_estimate_at = now()
        WHERE user_tokens.estimates_used < user_tokens.estimates_limit
        RETURNING user_id, week_start, estimates_used, estimates_limit, last_estimate_at
    `

	var row QuotaRow
	err := s.db.GetContext(ctx, &row, query, userID, week, defaultLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: weekly estimate limit reached", pricing.ErrQuotaExceeded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment estimate usage: %w", err)
	}
	return &row, nil
}

// GetWallet returns the user's wallet, or a zero-balance wallet when the
// user has none yet.
func (s *PostgresStorage) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	const query = `
        SELECT user_id, balance, lifetime_earned, lifetime_spent
        FROM user_wallet
        WHERE user_id = $1
    `

	var w Wallet
	err := s.db.GetContext(ctx, &w, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Wallet{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

// SpendCredits atomically deducts amount from the user's balance and
// records the transaction. Fails with ErrInsufficientFunds when the
// balance cannot cover the spend; the balance is never driven negative.
func (s *PostgresStorage) SpendCredits(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) (*Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: spend amount must be positive", pricing.ErrInvalidInput)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const deduct = `
        UPDATE user_wallet
        SET balance = balance - $2,
            lifetime_spent = lifetime_spent + $2
        WHERE user_id = $1 AND balance >= $2
        RETURNING user_id, balance, lifetime_earned, lifetime_spent
    `

	var w Wallet
	err = tx.GetContext(ctx, &w, deduct, userID, amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: not enough credits in wallet", pricing.ErrInsufficientFunds)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to spend credits: %w", err)
	}

	const record = `
        INSERT INTO wallet_transactions (user_id, amount, description, reference_id)
        VALUES ($1, $2, $3, NULLIF($4, ''))
    `
	if _, err := tx.ExecContext(ctx, record, userID, amount.Neg(), description, referenceID); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit spend: %w", err)
	}
	return &w, nil
}

// UnlockFeature records a wallet-purchased feature unlock.
func (s *PostgresStorage) UnlockFeature(ctx context.Context, userID, featureName string, cost decimal.Decimal) error {
	const query = `
        INSERT INTO feature_unlocks (user_id, feature_name, unlocked_via, cost)
        VALUES ($1, $2, 'wallet_purchase', $3)
    `
	if _, err := s.db.ExecContext(ctx, query, userID, featureName, cost); err != nil {
		return fmt.Errorf("failed to record feature unlock: %w", err)
	}
	return nil
}

// SaveLead persists a captured lead.
func (s *PostgresStorage) SaveLead(ctx context.Context, lead Lead) error {
	const query = `
        INSERT INTO leads (
            id, name, email, company, phone, market, size, unit, quality,
            total, currency, action, score, tier, notes, source, user_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
    `
	_, err := s.db.ExecContext(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Company, lead.Phone,
		lead.Market, lead.Size, lead.Unit, lead.Quality,
		lead.Total, lead.Currency, lead.Action, lead.Score, lead.Tier,
		lead.Notes, lead.Source, lead.UserID, lead.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

// ListLeads returns leads newest first.
func (s *PostgresStorage) ListLeads(ctx context.Context) ([]Lead, error) {
	const query = `
        SELECT id, name, email, company, phone, market, size, unit, quality,
               total, currency, action, score, tier, notes, source, user_id, created_at
        FROM leads
        ORDER BY created_at DESC
    `
	var leads []Lead
	if err := s.db.SelectContext(ctx, &leads, query); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
