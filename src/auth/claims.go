package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// countryClaims are checked in order; issuers disagree on the name.
var countryClaims = []string{"country", "countryCode", "country_code", "cnt"}

// -----------------------------------------------------------------------------

// CountryFromToken reads the country claim of a bearer token without verifying
// its signature; the server does that. Expired or unparsable tokens yield "".
func CountryFromToken(token string, now time.Time) string {
	claims, ok := parseClaims(token)
	if !ok || expired(claims, now) {
		return ""
	}

	for _, key := range countryClaims {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.ToUpper(strings.TrimSpace(v))
		}
	}
	return ""
}

// -----------------------------------------------------------------------------

// ExpiresAt returns the token's exp claim, if it has one.
func ExpiresAt(token string) (time.Time, bool) {
	claims, ok := parseClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// -----------------------------------------------------------------------------

func parseClaims(token string) (jwt.MapClaims, bool) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func expired(claims jwt.MapClaims, now time.Time) bool {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
