package pricing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Market is a named pricing configuration for one geographic market.
// It is loaded once per market selection and never mutated; switching
// markets replaces the whole value.
type Market struct {
	ID           string                 `json:"id,omitempty"`
	Version      json.RawMessage        `json:"version"`
	Currency     string                 `json:"currency"`
	Units        string                 `json:"units"`
	MEPPctOfBase float64                `json:"mepPctOfBase"`
	Quality      map[string]QualityTier `json:"quality"`
	Options      map[string]Option      `json:"options"`
	Slices       map[string]Slice       `json:"slices"`
}

type QualityTier struct {
	Rate float64 `json:"rate"`
}

type Option struct {
	Rate float64 `json:"rate"`
}

// Slice carries presentation metadata for one breakdown line.
type Slice struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var requiredMarketKeys = []string{"version", "currency", "units", "quality", "options", "slices"}

// ParseMarket decodes and validates a market configuration document.
// Missing top-level keys or a non-positive standard rate fail with
// ErrSchemaViolation naming the offending keys.
func ParseMarket(data []byte) (*Market, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed market document: %v", ErrSchemaViolation, err)
	}

	var missing []string
	for _, k := range requiredMarketKeys {
		if _, ok := raw[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: market document missing keys: %s",
			ErrSchemaViolation, strings.Join(missing, ", "))
	}

	var m Market
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	std, ok := m.Quality["standard"]
	if !ok || std.Rate <= 0 {
		return nil, fmt.Errorf("%w: quality.standard.rate must be a positive number", ErrSchemaViolation)
	}

	return &m, nil
}

// SliceLabel returns the display label for a breakdown line, falling back
// to the raw key when no slice metadata exists.
func (m *Market) SliceLabel(key string) string {
	if s, ok := m.Slices[key]; ok && s.Label != "" {
		return s.Label
	}
	return key
}

// QualityRate implements RateSource.
func (m *Market) QualityRate(key string) (float64, error) {
	t, ok := m.Quality[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownQualityTier, key)
	}
	return t.Rate, nil
}

// MEPPct implements RateSource.
func (m *Market) MEPPct() float64 {
	return m.MEPPctOfBase
}

// OptionRate implements RateSource. Unknown option keys report ok=false
// and are skipped by the engine.
func (m *Market) OptionRate(key string, _ float64) (float64, bool) {
	o, ok := m.Options[key]
	if !ok {
		return 0, false
	}
	return o.Rate, true
}
