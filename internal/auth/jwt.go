package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Manager signs and verifies subject-only tokens with a shared symmetric
// key. Tokens carry no expiry claim: the service stays stateless and a
// token remains valid until the signing key rotates or the subject is
// deleted.
type Manager struct {
	secret []byte
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// IssueToken binds subject to a HS512 MAC over the compact claim.
func (m *Manager) IssueToken(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject: subject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	return token.SignedString(m.secret)
}

// VerifyToken recomputes the MAC and extracts the subject. Any malformed,
// garbled, or foreign-signed input yields ErrInvalidToken; middleware
// treats that as "anonymous", never as a hard failure.
func (m *Manager) VerifyToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HMAC; reject alg-substitution attempts.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)

	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
