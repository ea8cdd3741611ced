package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the observer token payload. An empty Level grants every level.
type Claims struct {
	Observer string `json:"observer"`
	Level    string `json:"level,omitempty"`
	jwt.RegisteredClaims
}

// CanWatch reports whether the token may stream the given level.
func (c *Claims) CanWatch(level string) bool {
	return c.Level == "" || c.Level == level
}

// GenerateToken signs an observer JWT with the given secret and TTL.
func GenerateToken(observer, level, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Observer: observer,
		Level:    level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   observer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
