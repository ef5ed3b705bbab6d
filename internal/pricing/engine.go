package pricing

import (
	"fmt"
	"math"
)

// SqftPerM2 converts floor area from square meters to square feet.
const SqftPerM2 = 10.7639

// ToSqft normalizes a floor area to square feet, the unit all rates are
// expressed in. An empty unit means the size is already in sqft.
func ToSqft(size float64, unit string) (float64, error) {
	switch unit {
	case "", "sqft":
		return size, nil
	case "m2", "sqm":
		return size * SqftPerM2, nil
	default:
		return 0, fmt.Errorf("%w: unknown area unit %q", ErrInvalidInput, unit)
	}
}

// Breakdown line keys that precede the selected options.
const (
	LineBaseFitOut = "baseFitOut"
	LineMEPBase    = "mepBase"
)

// RateSource abstracts where unit rates come from: a tiered per-market
// configuration or the flat server-side price table. One engine, one
// algorithm, pluggable rates.
type RateSource interface {
	// QualityRate returns the fit-out base rate per unit area (excl. MEP)
	// for a quality tier, or ErrUnknownQualityTier.
	QualityRate(qualityKey string) (float64, error)
	// MEPPct is the MEP cost expressed as a fraction of the fit-out base.
	MEPPct() float64
	// OptionRate returns the per-unit-area rate for a selected option.
	// Unknown keys report ok=false and are skipped, which keeps option
	// sets forward and backward compatible.
	OptionRate(key string, qualityRate float64) (rate float64, ok bool)
}

// Request is the transient input to one calculation.
type Request struct {
	// Size is the project area in square feet.
	Size float64
	// Quality selects a tier in the rate source.
	Quality string
	// Options is the set of selected add-on keys. Order is preserved in
	// the breakdown; duplicates are ignored.
	Options []string
}

// Line is one labeled contribution to the total.
type Line struct {
	Key    string
	Amount float64
}

// Result is the output of one calculation. The breakdown lines sum
// exactly to Total; rounding is a presentation concern and never happens
// here.
type Result struct {
	Base      float64
	Total     float64
	PerUnit   float64
	Breakdown []Line
}

// ComputeCost runs the canonical estimation algorithm:
//
//	fitOutBase = size × qualityRate
//	mepBase    = fitOutBase × mepPct
//	total      = fitOutBase + mepBase + Σ size × optionRate
//
// Precondition violations fail fast; the engine never returns a
// partially computed result.
func ComputeCost(req Request, src RateSource) (*Result, error) {
	if req.Size <= 0 || math.IsNaN(req.Size) || math.IsInf(req.Size, 0) {
		return nil, fmt.Errorf("%w: size must be a positive finite number, got %v", ErrInvalidInput, req.Size)
	}

	qualityRate, err := src.QualityRate(req.Quality)
	if err != nil {
		return nil, err
	}

	fitOutBase := req.Size * qualityRate
	mepBase := fitOutBase * src.MEPPct()
	base := fitOutBase + mepBase

	breakdown := []Line{
		{Key: LineBaseFitOut, Amount: fitOutBase},
		{Key: LineMEPBase, Amount: mepBase},
	}

	// Accumulate into the running total in breakdown order so the lines
	// sum bit-exactly to Total.
	total := base
	seen := make(map[string]bool, len(req.Options))
	for _, key := range req.Options {
		if seen[key] {
			continue
		}
		seen[key] = true

		rate, ok := src.OptionRate(key, qualityRate)
		if !ok {
			continue
		}
		amount := req.Size * rate
		total += amount
		breakdown = append(breakdown, Line{Key: key, Amount: amount})
	}

	return &Result{
		Base:      base,
		Total:     total,
		PerUnit:   total / req.Size,
		Breakdown: breakdown,
	}, nil
}
