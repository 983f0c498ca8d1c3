package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// Token types.
const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

type TokenType string

// Token is a stored credential row. Only the sha256 hash of the secret ever
// hits the database. An access/refresh pair issued together shares a PairID so
// evicting one always evicts the other.
type Token struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Type      TokenType `json:"type"`
	Hash      string    `json:"-"`
	PairID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
	ExpiresAt time.Time `json:"expires_at"` // UTC
}

func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// GenerateSecret returns a new opaque token secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the hex sha256 digest stored in place of a secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

type TokenRepository interface {
	// SaveTokenPair persists an access/refresh pair in a single transaction.
	// When the owner already holds maxRefresh live refresh tokens, the oldest
	// one (by creation time) and its paired access token are deleted first.
	SaveTokenPair(ctx context.Context, access, refresh Token, maxRefresh int) error
	GetTokenByHash(ctx context.Context, typ TokenType, hash string) (Token, error)
	// ReplaceAccessToken swaps the access credential of an existing pair.
	ReplaceAccessToken(ctx context.Context, pairID, hash string, expiresAt time.Time) error
	DeleteTokenPair(ctx context.Context, userID int, pairID string) error
	QueryUserTokens(ctx context.Context, userID int) ([]Token, error)
}
