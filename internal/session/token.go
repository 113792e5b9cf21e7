package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the `exp` claim of an access token without verifying
// the signature. The server is the authority on validity; this is only used
// to skip refresh calls for tokens that are obviously still alive.
func TokenExpiry(raw string) (time.Time, error) {
	parser := jwt.NewParser()
	tok, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token's exp claim is in the past. Tokens
// that cannot be parsed are treated as expired.
func TokenExpired(raw string, now time.Time) bool {
	exp, err := TokenExpiry(raw)
	if err != nil {
		return true
	}
	return now.After(exp)
}
