package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UsableBuffer is how long before expiry a token stops being used.
const UsableBuffer = 5 * time.Minute

// The signature is never verified here; the remote service is the authority.
var tokenParser = jwt.NewParser(jwt.WithPaddingAllowed())

// IsUsable reports whether accessToken may be sent at now.
// Absent or malformed tokens, and tokens with UsableBuffer or less
// remaining, are unusable. A token without an exp claim is usable.
func IsUsable(accessToken string, now time.Time) bool {
	claims, ok := decodeClaims(accessToken)
	if !ok {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.Sub(now) > UsableBuffer
}

// TokenExpiry returns the exp claim of accessToken, if it has one.
func TokenExpiry(accessToken string) (time.Time, bool) {
	claims, ok := decodeClaims(accessToken)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// decodeClaims reads the payload segment without checking the header or signature.
func decodeClaims(token string) (jwt.MapClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}

	payload, err := tokenParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil || claims == nil {
		return nil, false
	}
	return claims, true
}
