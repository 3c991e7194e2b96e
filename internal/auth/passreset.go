package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadResetToken is returned for expired, malformed or forged reset
// tokens. Callers show a single generic message for all of these.
var ErrBadResetToken = errors.New("invalid or expired reset token")

// NewResetToken builds and signs an HS256 JWT that authorizes a password
// reset for the given user. The subject carries the user id; exp bounds
// the token's validity.
func NewResetToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"use": "password_reset",
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseResetToken validates a reset token and returns the user id it was
// issued for.
func ParseResetToken(secret, token string) (uint64, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadResetToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrBadResetToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrBadResetToken
	}
	if use, _ := claims["use"].(string); use != "password_reset" {
		return 0, ErrBadResetToken
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrBadResetToken
	}
	return id, nil
}
