package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrNoSecret = errors.New("gate password is not configured")

// PasswordGate checks candidates against the shared secret. The secret is
// either plain text or a bcrypt hash ($2a$, $2b$, $2y$).
type PasswordGate struct {
	mu     sync.RWMutex
	secret []byte
	hashed bool
}

// NewPasswordGate creates a gate for the given secret
func NewPasswordGate(secret string) *PasswordGate {
	g := &PasswordGate{}
	g.SetSecret(secret)
	return g
}

// SetSecret replaces the secret; used when the password file changes
func (g *PasswordGate) SetSecret(secret string) {
	secret = strings.TrimSpace(secret)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.secret = []byte(secret)
	g.hashed = isBcryptHash(secret)
}

// Configured reports whether a non-empty secret is set
func (g *PasswordGate) Configured() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.secret) > 0
}

// Check reports whether candidate matches the secret
func (g *PasswordGate) Check(candidate string) (bool, error) {
	g.mu.RLock()
	secret, hashed := g.secret, g.hashed
	g.mu.RUnlock()

	if len(secret) == 0 {
		return false, ErrNoSecret
	}
	if hashed {
		err := bcrypt.CompareHashAndPassword(secret, []byte(candidate))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	return subtle.ConstantTimeCompare(secret, []byte(candidate)) == 1, nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
