package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingToken is returned when the Authorization header carries no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// GenerateJWT creates an HS256 token for the given subject.
func GenerateJWT(subject, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates the token signature and expiry and returns its subject.
func ParseJWT(tokenStr, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	if claims.Subject == "" {
		return "", jwt.ErrTokenMalformed
	}

	return claims.Subject, nil
}

// ExtractToken returns the raw token of a "Bearer <token>" Authorization header.
func ExtractToken(r *http.Request) string {
	return TokenFromHeader(r.Header.Get("Authorization"))
}

// TokenFromHeader parses an Authorization header value.
func TokenFromHeader(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
