package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"trdb-estimator/internal/pricing"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Loader fetches and validates per-market pricing documents. Every call
// re-fetches; callers hold on to the result for the duration of the
// selected market.
type Loader struct {
	base    string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewLoader creates a loader rooted at base, which is either an http(s)
// URL or a local directory. Market id <id> resolves to <base>/<id>.json.
func NewLoader(base string, timeout time.Duration, logger *zap.Logger) *Loader {
	return &Loader{
		base:    strings.TrimRight(base, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Load fetches and validates one market document. Fetch failures wrap
// ErrDataUnavailable; validation failures wrap ErrSchemaViolation.
// Callers must not compute against a market that failed to load.
func (l *Loader) Load(ctx context.Context, id string) (*pricing.Market, error) {
	if !slugPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: invalid market id %q", pricing.ErrInvalidInput, id)
	}

	data, err := l.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := pricing.ParseMarket(data)
	if err != nil {
		return nil, fmt.Errorf("market %q: %w", id, err)
	}
	m.ID = id

	l.logger.Debug("Market loaded",
		zap.String("market_id", id),
		zap.String("currency", m.Currency))
	return m, nil
}

func (l *Loader) fetch(ctx context.Context, id string) ([]byte, error) {
	if strings.HasPrefix(l.base, "http://") || strings.HasPrefix(l.base, "https://") {
		return l.fetchHTTP(ctx, id)
	}

	data, err := os.ReadFile(filepath.Join(l.base, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w: market %q: %v", pricing.ErrDataUnavailable, id, err)
	}
	return data, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s.json", l.base, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", pricing.ErrDataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch market %q: %v", pricing.ErrDataUnavailable, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch market %q: unexpected status %d",
			pricing.ErrDataUnavailable, id, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read market %q: %v", pricing.ErrDataUnavailable, id, err)
	}
	return data, nil
}
