// Package phone normalizes Indonesian phone numbers to the canonical
// WhatsApp format used across the marketplace.
package phone

import "strings"

// FormatWhatsApp converts a raw phone input to the canonical "+62..." form.
// A leading "08" is rewritten to "628". The function is idempotent:
// FormatWhatsApp(FormatWhatsApp(x)) == FormatWhatsApp(x).
func FormatWhatsApp(raw string) string {
	digits := stripNonDigits(raw)
	if strings.HasPrefix(digits, "08") {
		digits = "628" + digits[2:]
	}
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// ValidateWhatsApp reports whether the raw input looks like a deliverable
// Indonesian WhatsApp number: digits start with "62" or "08" and the total
// digit count is between 11 and 13.
func ValidateWhatsApp(raw string) bool {
	digits := stripNonDigits(raw)
	if len(digits) < 11 || len(digits) > 13 {
		return false
	}
	return strings.HasPrefix(digits, "62") || strings.HasPrefix(digits, "08")
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
