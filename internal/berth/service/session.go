package service

import (
	"time"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL bounds how long a login stays valid without
// re-authenticating.
const DefaultSessionTTL = 12 * time.Hour

// SessionClaims are the claims carried by a session token. The subject is
// the user id; role and quota are NOT embedded so that admin changes take
// effect on the next request, not the next login.
type SessionClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username,omitempty"`
}

// Sessions mints and verifies signed session tokens. The secret comes from
// configuration, injected once at startup.
type Sessions struct {
	Secret []byte
	TTL    time.Duration
}

// Issue returns a signed token identifying the user.
func (s *Sessions) Issue(user domain.User) (string, error) {
	ttl := s.TTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Verify parses a token and returns the user id it identifies.
func (s *Sessions) Verify(raw string) (userID string, err error) {
	var claims SessionClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", domain.ErrBadCredentials
	}
	return claims.Subject, nil
}
