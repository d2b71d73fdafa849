package utils

import (
	"fmt"
	"strings"
)

// SupportedLocales in fallback order.
var SupportedLocales = []string{"uz", "ru", "en"}

// -----------------------------------------------------------------------------

// NormalizeLocale maps any language tag to a supported locale, defaulting to "en".
func NormalizeLocale(input string) string {
	raw := strings.ToLower(strings.TrimSpace(input))
	if raw == "" {
		return "en"
	}
	if isSupported(raw) {
		return raw
	}

	// derive from language subtag like en-US, ru_RU, uz-Cyrl
	two := strings.FieldsFunc(raw, func(r rune) bool { return r == '-' || r == '_' })
	if len(two) > 0 && isSupported(two[0]) {
		return two[0]
	}
	if strings.HasPrefix(raw, "uz") {
		return "uz"
	}
	if strings.HasPrefix(raw, "ru") {
		return "ru"
	}
	return "en"
}

// -----------------------------------------------------------------------------

// BuildAcceptLanguage lists every supported locale, preferred first, with descending q-weights.
func BuildAcceptLanguage(preferred string) string {
	pref := NormalizeLocale(preferred)
	ordered := []string{pref}
	for _, l := range SupportedLocales {
		if l != pref {
			ordered = append(ordered, l)
		}
	}

	parts := make([]string, len(ordered))
	for i, code := range ordered {
		if i == 0 {
			parts[i] = code
			continue
		}
		parts[i] = fmt.Sprintf("%s;q=%.1f", code, 1-float64(i)*0.1)
	}
	return strings.Join(parts, ", ")
}

func isSupported(code string) bool {
	for _, l := range SupportedLocales {
		if l == code {
			return true
		}
	}
	return false
}
