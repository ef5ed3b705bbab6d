package pricing

import (
	"errors"
	"strings"
	"testing"
)

const validMarketDoc = `{
	"version": "2026-07",
	"currency": "AED",
	"units": "sqft",
	"mepPctOfBase": 0.22,
	"quality": {"standard": {"rate": 250}},
	"options": {"furniture": {"rate": 30}},
	"slices": {"baseFitOut": {"label": "Fit-out works", "color": "#1f6f54"}}
}`

func TestParseMarket(t *testing.T) {
	m, err := ParseMarket([]byte(validMarketDoc))
	if err != nil {
		t.Fatalf("ParseMarket failed: %v", err)
	}

	if m.Currency != "AED" {
		t.Errorf("Incorrect currency, got %q, want %q", m.Currency, "AED")
	}
	if m.MEPPctOfBase != 0.22 {
		t.Errorf("Incorrect mepPctOfBase, got %v, want %v", m.MEPPctOfBase, 0.22)
	}
	if m.Quality["standard"].Rate != 250 {
		t.Errorf("Incorrect standard rate, got %v, want %v", m.Quality["standard"].Rate, 250.0)
	}
}

func TestParseMarket_MissingKeys(t *testing.T) {
	_, err := ParseMarket([]byte(`{"currency": "AED", "quality": {"standard": {"rate": 1}}}`))
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("Expected ErrSchemaViolation, got %v", err)
	}
	// Missing keys are named, sorted.
	if !strings.Contains(err.Error(), "options, slices, units, version") {
		t.Errorf("Missing keys not named in error: %v", err)
	}
}

func TestParseMarket_MalformedJSON(t *testing.T) {
	_, err := ParseMarket([]byte(`{not json`))
	if !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("Expected ErrSchemaViolation, got %v", err)
	}
}

func TestParseMarket_BadStandardRate(t *testing.T) {
	docs := []string{
		`{"version":1,"currency":"AED","units":"sqft","quality":{},"options":{},"slices":{}}`,
		`{"version":1,"currency":"AED","units":"sqft","quality":{"standard":{"rate":0}},"options":{},"slices":{}}`,
		`{"version":1,"currency":"AED","units":"sqft","quality":{"standard":{"rate":-5}},"options":{},"slices":{}}`,
	}
	for _, doc := range docs {
		if _, err := ParseMarket([]byte(doc)); !errors.Is(err, ErrSchemaViolation) {
			t.Errorf("Doc %s: expected ErrSchemaViolation, got %v", doc, err)
		}
	}
}

func TestSliceLabel(t *testing.T) {
	m, err := ParseMarket([]byte(validMarketDoc))
	if err != nil {
		t.Fatalf("ParseMarket failed: %v", err)
	}

	if got := m.SliceLabel("baseFitOut"); got != "Fit-out works" {
		t.Errorf("Incorrect slice label, got %q, want %q", got, "Fit-out works")
	}
	if got := m.SliceLabel("mystery"); got != "mystery" {
		t.Errorf("Expected raw key fallback, got %q", got)
	}
}
