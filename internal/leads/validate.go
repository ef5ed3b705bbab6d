package leads

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"trdb-estimator/internal/pricing"
)

// Validate checks the lead contract's required fields. Name and email
// are mandatory; everything else is best-effort contact data.
func Validate(p Payload) error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("%w: name and email are required", pricing.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", pricing.ErrInvalidInput)
	}
	if p.Phone != "" && !IsValidPhoneNumber(p.Phone) {
		return fmt.Errorf("%w: invalid phone number", pricing.ErrInvalidInput)
	}
	return nil
}

func NormalizePhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	if strings.HasPrefix(phone, "+") {
		return "+" + cleaned
	}
	return cleaned
}

func IsValidPhoneNumber(phone string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	// 10-15 digits without the + prefix
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	// Obviously fake numbers
	badNumbers := map[string]bool{
		"0000000000": true,
		"1111111111": true,
		"1234567890": true,
		"9999999999": true,
		"0123456789": true,
	}
	return !badNumbers[cleaned]
}
