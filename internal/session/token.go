// Package session issues and verifies the reconnect tokens handed out on
// welcome (§2.G, §4.I.3): short-lived JWTs that let a reconnecting client,
// which is always given a new player ID, carry over its previous
// character selection. Grounded on server/auth/auth.go's jwt.NewWithClaims/jwt.Parse
// pair, generalized from a persistent login session to a 10-minute
// reconnect window.
package session

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const ttl = 10 * time.Minute

// Issuer signs and verifies reconnect tokens with a process-lifetime key.
type Issuer struct {
	key []byte
}

// NewIssuer generates a fresh 32-byte signing key.
func NewIssuer() *Issuer {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &Issuer{key: key}
}

// Issue mints a token binding playerID to name, valid for ttl.
func (i *Issuer) Issue(playerID, name string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  playerID,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.key)
}

// Verify parses tok and returns the bound player ID and name.
func (i *Issuer) Verify(tok string) (playerID, name string, err error) {
	if tok == "" {
		return "", "", errors.New("session: empty token")
	}
	parsed, err := jwt.Parse(tok, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", errors.New("session: invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("session: bad claims")
	}
	sub, _ := claims["sub"].(string)
	nm, _ := claims["name"].(string)
	if sub == "" {
		return "", "", errors.New("session: missing subject")
	}
	return sub, nm, nil
}
