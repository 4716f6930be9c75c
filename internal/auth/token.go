package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"eventide/internal/apperr"
)

const defaultTTL = 24 * time.Hour

type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue signs an HS256 token whose subject is userID.
func (t *Tokens) Issue(userID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse validates a token and returns its subject.
func (t *Tokens) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", apperr.New(apperr.KindUnauthenticated, "invalid or expired token")
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return "", apperr.New(apperr.KindUnauthenticated, "invalid token issuer")
	}
	if claims.Subject == "" {
		return "", apperr.New(apperr.KindUnauthenticated, "token has no subject")
	}
	return claims.Subject, nil
}
