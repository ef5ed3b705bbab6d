package georate

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"trdb-estimator/internal/pricing"
)

// timeEscalationFactor is reserved for monthly rate escalation. Not yet
// active.
const timeEscalationFactor = 1.000

// BaselineRow is one row of the baseline unit-rate table.
type BaselineRow struct {
	Country    string  `json:"country"`
	City       string  `json:"city"`
	Quality    string  `json:"quality"`
	Currency   string  `json:"currency"`
	AsOf       string  `json:"as_of"`
	Provenance string  `json:"provenance"`
	UnitMin    float64 `json:"unit_min"`
	UnitML     float64 `json:"unit_ml"`
	UnitMax    float64 `json:"unit_max"`
}

// ZoneTable maps country → city → zone/tier data.
type ZoneTable map[string]map[string]ZoneCity

type ZoneCity struct {
	Zones map[string]string  `json:"zones"` // zone name → tier name
	Tiers map[string]float64 `json:"tiers"` // tier name → multiplier
}

// Resolver answers city/zone enumeration and zone-adjusted unit-rate
// lookups against static baseline data. It holds the data immutably
// after construction.
type Resolver struct {
	rates []BaselineRow
	zones ZoneTable
}

func NewResolver(rates []BaselineRow, zones ZoneTable) *Resolver {
	return &Resolver{rates: rates, zones: zones}
}

// Load reads the baseline-rate and zone tables from disk.
func Load(ratesPath, zonesPath string) (*Resolver, error) {
	var rates []BaselineRow
	if err := readJSON(ratesPath, &rates); err != nil {
		return nil, err
	}

	var zones ZoneTable
	if err := readJSON(zonesPath, &zones); err != nil {
		return nil, err
	}

	return NewResolver(rates, zones), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", pricing.ErrDataUnavailable, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", pricing.ErrSchemaViolation, path, err)
	}
	return nil
}

// ListCities returns the distinct cities present in the baseline table
// for a country, alphabetically sorted.
func (r *Resolver) ListCities(country string) []string {
	seen := make(map[string]bool)
	var cities []string
	for _, row := range r.rates {
		if row.Country != country || seen[row.City] {
			continue
		}
		seen[row.City] = true
		cities = append(cities, row.City)
	}
	sort.Strings(cities)
	return cities
}

// ZoneInfo enumerates the zones of a city. Empty when no zone data
// exists; zone refinement is optional, not required, for an estimate.
type ZoneInfo struct {
	Zones    []string           `json:"zones"`
	Tiers    map[string]float64 `json:"tiers"`
	ZoneTier map[string]string  `json:"zoneTier"`
}

// ListZones returns the zone names, tier multipliers and zone→tier
// mapping for a city. A city without zone data yields an empty result,
// not an error.
func (r *Resolver) ListZones(country, city string) ZoneInfo {
	cz, ok := r.zones[country][city]
	if !ok {
		return ZoneInfo{Zones: []string{}, Tiers: map[string]float64{}, ZoneTier: map[string]string{}}
	}
	zones := make([]string, 0, len(cz.Zones))
	for z := range cz.Zones {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return ZoneInfo{Zones: zones, Tiers: cz.Tiers, ZoneTier: cz.Zones}
}

// RateQuery selects a baseline row and an optional zone refinement.
type RateQuery struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Zone    string `json:"zone,omitempty"`
	Quality string `json:"quality"`
}

// UnitRates is a zone-adjusted three-point unit rate, rounded to whole
// currency units.
type UnitRates struct {
	Currency   string        `json:"currency"`
	AsOf       string        `json:"as_of"`
	Provenance string        `json:"provenance"`
	Rates      pricing.Range `json:"rates"`
}

// UnitRates looks up the baseline row for country+city+quality and
// applies the zone tier multiplier (1.0 when the zone is absent or
// unknown) and the reserved time-escalation factor.
func (r *Resolver) UnitRates(q RateQuery) (*UnitRates, error) {
	var row *BaselineRow
	for i := range r.rates {
		c := &r.rates[i]
		if c.Country == q.Country && c.City == q.City && c.Quality == q.Quality {
			row = c
			break
		}
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s/%s/%s", pricing.ErrNoBaselineForSelection,
			q.Country, q.City, q.Quality)
	}

	factor := 1.0
	if cz, ok := r.zones[q.Country][q.City]; ok && q.Zone != "" {
		if tier, ok := cz.Zones[q.Zone]; ok {
			if mult, ok := cz.Tiers[tier]; ok {
				factor = mult
			}
		}
	}

	f := factor * timeEscalationFactor
	rates := pricing.Range{Min: row.UnitMin, Likely: row.UnitML, Max: row.UnitMax}

	return &UnitRates{
		Currency:   row.Currency,
		AsOf:       row.AsOf,
		Provenance: row.Provenance,
		Rates:      rates.Scale(f).Round(),
	}, nil
}

// Totals is the three-point project total plus the per-unit-area
// equivalents, all rounded to whole currency units.
type Totals struct {
	Min     float64       `json:"min"`
	Likely  float64       `json:"ml"`
	Max     float64       `json:"max"`
	PerUnit pricing.Range `json:"perFt2"`
}

// ComputeTotals scales a unit-rate range by size and the cumulative
// option uplift. Uplift values are fractions (0.05 = +5%); negative
// values are ignored and the cumulative uplift is capped at 1.0 to keep
// absurd inputs from producing nonsensical totals.
func ComputeTotals(unit pricing.Range, size float64, options map[string]float64) (*Totals, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("%w: size must be a positive finite number, got %v",
			pricing.ErrInvalidInput, size)
	}

	var uplift float64
	for _, v := range options {
		if v > 0 {
			uplift += v
		}
	}
	if uplift > 1 {
		uplift = 1
	}

	totals := unit.Scale(size).Scale(1 + uplift).Round()
	return &Totals{
		Min:     totals.Min,
		Likely:  totals.Likely,
		Max:     totals.Max,
		PerUnit: unit.Scale(1 + uplift).Round(),
	}, nil
}
