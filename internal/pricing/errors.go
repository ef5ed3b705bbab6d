package pricing

import "errors"

// Calculation and data errors. Lookup misses and bad inputs abort the
// computation; they are never substituted with defaults.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnknownQualityTier     = errors.New("unknown quality tier")
	ErrNoBaselineForSelection = errors.New("no baseline for selection")
	ErrSchemaViolation        = errors.New("schema violation")
	ErrDataUnavailable        = errors.New("data unavailable")
	ErrNotificationFailed     = errors.New("notification failed")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrQuotaExceeded          = errors.New("quota exceeded")
)
