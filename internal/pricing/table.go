package pricing

import "fmt"

// MEPSplit is the share of the gross unit rate attributed to MEP works
// in the flat price table.
const MEPSplit = 0.35

// Band is a low/high unit-rate range for one market+quality cell.
type Band struct {
	Low  float64
	High float64
}

// Mid is the range midpoint, the point estimate the table source drives
// calculations with.
func (b Band) Mid() float64 {
	return (b.Low + b.High) / 2
}

// Point selects which point of a band drives a calculation.
type Point int

const (
	PointMid Point = iota
	PointLow
	PointHigh
)

func (p Point) of(b Band) float64 {
	switch p {
	case PointLow:
		return b.Low
	case PointHigh:
		return b.High
	default:
		return b.Mid()
	}
}

// PriceTable is the server-held pricing store: per-market quality bands
// plus option multipliers applied to the gross base. It never leaves the
// server; clients only see computed results.
type PriceTable struct {
	markets  map[string]map[string]Band
	mults    map[string]float64
	labels   map[string]string
	mepSplit float64
}

// DefaultPriceTable returns the current calibrated table.
// Rates calibrated against Odgers Berndtson (JLT), AMIT (Marsa Al-Seef)
// and Compass benchmarks.
func DefaultPriceTable() *PriceTable {
	return &PriceTable{
		markets: map[string]map[string]Band{
			"uae-dubai": {
				"light":    {167, 223},
				"standard": {223, 297},
				"premium":  {297, 418},
			},
			"uae-abudhabi": {
				"light":    {167, 223},
				"standard": {223, 297},
				"premium":  {297, 418},
			},
			"uae-rasalkhaimah": {
				"light":    {150, 200},
				"standard": {200, 267},
				"premium":  {267, 376},
			},
			"ksa-riyadh": {
				"light":    {150, 201},
				"standard": {201, 267},
				"premium":  {267, 376},
			},
			"ksa-jeddah": {
				"light":    {150, 201},
				"standard": {201, 267},
				"premium":  {267, 376},
			},
		},
		mults: map[string]float64{
			"furniture": 0.13,
			"ffe":       0.12,
			"art":       0.07,
			"smart":     0.08,
			"green":     0.05,
			"fullhvac":  0.20,
		},
		labels: map[string]string{
			"furniture": "Furniture Supply",
			"ffe":       "Loose Furnishings & Décor",
			"art":       "Original Art Procurement",
			"smart":     "Smart Workplace (IoT/AV)",
			"green":     "LEED / Sustainability",
			"fullhvac":  "Full HVAC Supply & Plant",
		},
		mepSplit: MEPSplit,
	}
}

// HasMarket reports whether the table carries rates for a market slug.
func (t *PriceTable) HasMarket(market string) bool {
	_, ok := t.markets[market]
	return ok
}

// OptionLabel returns the display label for an option key, falling back
// to the raw key.
func (t *PriceTable) OptionLabel(key string) string {
	if l, ok := t.labels[key]; ok {
		return l
	}
	return key
}

// OptionMult returns the multiplier for an option key.
func (t *PriceTable) OptionMult(key string) (float64, bool) {
	m, ok := t.mults[key]
	return m, ok
}

// Band returns the unit-rate band for a market+quality cell.
func (t *PriceTable) Band(market, quality string) (Band, error) {
	qs, ok := t.markets[market]
	if !ok {
		return Band{}, fmt.Errorf("%w: unknown market %q", ErrNoBaselineForSelection, market)
	}
	b, ok := qs[quality]
	if !ok {
		return Band{}, fmt.Errorf("%w: %q", ErrUnknownQualityTier, quality)
	}
	return b, nil
}

// Source adapts one market of the table to the canonical engine. The
// gross unit rate (the band point) is split into a fit-out share and an
// MEP share so that the single algorithm reproduces the table's
// arithmetic: fitOutBase = (1-split)·size·rate, mepBase = split·size·rate,
// optionCost = mult·size·rate.
func (t *PriceTable) Source(market string, point Point) *TableSource {
	return &TableSource{table: t, market: market, point: point}
}

// TableSource is a RateSource view over one market of a PriceTable.
type TableSource struct {
	table  *PriceTable
	market string
	point  Point
}

func (s *TableSource) QualityRate(quality string) (float64, error) {
	b, err := s.table.Band(s.market, quality)
	if err != nil {
		return 0, err
	}
	return s.point.of(b) * (1 - s.table.mepSplit), nil
}

func (s *TableSource) MEPPct() float64 {
	return s.table.mepSplit / (1 - s.table.mepSplit)
}

func (s *TableSource) OptionRate(key string, qualityRate float64) (float64, bool) {
	mult, ok := s.table.mults[key]
	if !ok {
		return 0, false
	}
	// Option multipliers apply to the gross rate, MEP included.
	gross := qualityRate / (1 - s.table.mepSplit)
	return gross * mult, true
}
