package pricing

import "math"

// Range is a three-point unit-rate or total: pessimistic, most likely,
// optimistic. Both the flat price table and the geo baseline tables
// produce ranges; the tiered market configs collapse to a single point.
type Range struct {
	Min    float64 `json:"min"`
	Likely float64 `json:"ml"`
	Max    float64 `json:"max"`
}

// Scale multiplies all three points by f.
func (r Range) Scale(f float64) Range {
	return Range{Min: r.Min * f, Likely: r.Likely * f, Max: r.Max * f}
}

// Round rounds each point to the nearest whole currency unit.
func (r Range) Round() Range {
	return Range{
		Min:    math.Round(r.Min),
		Likely: math.Round(r.Likely),
		Max:    math.Round(r.Max),
	}
}
