package pricing

import (
	"errors"
	"testing"
)

// The table source must reproduce the flat-table arithmetic through the
// shared engine: fitOutBase = 0.65·size·rate, mepBase = 0.35·size·rate,
// optionCost = mult·size·rate, with rate the band midpoint.
func TestTableSource_ReproducesTableArithmetic(t *testing.T) {
	table := DefaultPriceTable()

	// uae-dubai standard: band 223–297, midpoint 260.
	result, err := ComputeCost(Request{
		Size:    1000,
		Quality: "standard",
		Options: []string{"furniture"},
	}, table.Source("uae-dubai", PointMid))
	if err != nil {
		t.Fatalf("ComputeCost failed: %v", err)
	}

	if !nearlyEqual(result.Breakdown[0].Amount, 0.65*1000*260) {
		t.Errorf("Incorrect fit-out base, got %.2f, want %.2f", result.Breakdown[0].Amount, 0.65*1000*260)
	}
	if !nearlyEqual(result.Breakdown[1].Amount, 0.35*1000*260) {
		t.Errorf("Incorrect MEP base, got %.2f, want %.2f", result.Breakdown[1].Amount, 0.35*1000*260)
	}
	if !nearlyEqual(result.Breakdown[2].Amount, 0.13*1000*260) {
		t.Errorf("Incorrect furniture cost, got %.2f, want %.2f", result.Breakdown[2].Amount, 0.13*1000*260)
	}
	if !nearlyEqual(result.Total, 1000*260*(1+0.13)) {
		t.Errorf("Incorrect total, got %.2f, want %.2f", result.Total, 1000*260*1.13)
	}
}

func TestTableSource_LowHighPoints(t *testing.T) {
	table := DefaultPriceTable()

	low, err := ComputeCost(Request{Size: 1000, Quality: "standard"}, table.Source("uae-dubai", PointLow))
	if err != nil {
		t.Fatalf("ComputeCost(low) failed: %v", err)
	}
	high, err := ComputeCost(Request{Size: 1000, Quality: "standard"}, table.Source("uae-dubai", PointHigh))
	if err != nil {
		t.Fatalf("ComputeCost(high) failed: %v", err)
	}

	if !nearlyEqual(low.Total, 223000) {
		t.Errorf("Incorrect low total, got %.2f, want %.2f", low.Total, 223000.0)
	}
	if !nearlyEqual(high.Total, 297000) {
		t.Errorf("Incorrect high total, got %.2f, want %.2f", high.Total, 297000.0)
	}
}

func TestPriceTable_Band(t *testing.T) {
	table := DefaultPriceTable()

	b, err := table.Band("ksa-riyadh", "premium")
	if err != nil {
		t.Fatalf("Band failed: %v", err)
	}
	if b.Low != 267 || b.High != 376 {
		t.Errorf("Incorrect band, got %v-%v, want 267-376", b.Low, b.High)
	}

	if _, err := table.Band("mars-olympus", "standard"); !errors.Is(err, ErrNoBaselineForSelection) {
		t.Errorf("Unknown market: expected ErrNoBaselineForSelection, got %v", err)
	}
	if _, err := table.Band("uae-dubai", "deluxe"); !errors.Is(err, ErrUnknownQualityTier) {
		t.Errorf("Unknown quality: expected ErrUnknownQualityTier, got %v", err)
	}
}

func TestPriceTable_HasMarket(t *testing.T) {
	table := DefaultPriceTable()

	for _, m := range []string{"uae-dubai", "uae-abudhabi", "uae-rasalkhaimah", "ksa-riyadh", "ksa-jeddah"} {
		if !table.HasMarket(m) {
			t.Errorf("Expected market %q in table", m)
		}
	}
	if table.HasMarket("uk-london") {
		t.Error("Unexpected market uk-london in table")
	}
}

func TestPriceTable_OptionLabel(t *testing.T) {
	table := DefaultPriceTable()

	if got := table.OptionLabel("furniture"); got != "Furniture Supply" {
		t.Errorf("Incorrect label, got %q", got)
	}
	if got := table.OptionLabel("unknown"); got != "unknown" {
		t.Errorf("Expected raw key fallback, got %q", got)
	}
}
