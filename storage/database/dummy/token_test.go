package dummydb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core/user"
)

func savePair(t *testing.T, repo user.TokenRepository, userID int, createdAt time.Time, maxRefresh int) string {
	t.Helper()
	pairID := uuid.New().String()
	err := repo.SaveTokenPair(
		context.Background(),
		user.Token{
			UserID:    userID,
			Type:      user.TokenAccess,
			Hash:      user.HashSecret(fmt.Sprintf("access-%s", pairID)),
			PairID:    pairID,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(30 * time.Minute),
		},
		user.Token{
			UserID:    userID,
			Type:      user.TokenRefresh,
			Hash:      user.HashSecret(fmt.Sprintf("refresh-%s", pairID)),
			PairID:    pairID,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(7 * 24 * time.Hour),
		},
		maxRefresh,
	)
	require.NoError(t, err)
	return pairID
}

func TestTokenRepository_SaveTokenPair_eviction(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	const maxRefresh = 5
	now := time.Now().UTC()

	pairIDs := make([]string, 0, maxRefresh+1)
	for i := 0; i < maxRefresh; i++ {
		pairIDs = append(pairIDs, savePair(t, repo, 1, now.Add(time.Duration(i)*time.Minute), maxRefresh))
	}

	tokens, err := repo.QueryUserTokens(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, tokens, 2*maxRefresh)

	// a sixth pair evicts the oldest pair, access token included
	pairIDs = append(pairIDs, savePair(t, repo, 1, now.Add(time.Duration(maxRefresh)*time.Minute), maxRefresh))

	tokens, err = repo.QueryUserTokens(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tokens, 2*maxRefresh)

	kept := make(map[string]int)
	for _, tok := range tokens {
		kept[tok.PairID]++
	}
	assert.NotContains(t, kept, pairIDs[0])
	for _, pairID := range pairIDs[1:] {
		assert.Equal(t, 2, kept[pairID], "pair %s should keep both tokens", pairID)
	}
}

func TestTokenRepository_SaveTokenPair_perUser(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		savePair(t, repo, 1, now.Add(time.Duration(i)*time.Minute), 5)
	}
	otherPair := savePair(t, repo, 2, now, 5)

	// another user filling their quota does not touch user 2's pair
	savePair(t, repo, 1, now.Add(10*time.Minute), 5)

	tokens, err := repo.QueryUserTokens(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, otherPair, tokens[0].PairID)
}

func TestTokenRepository_ReplaceAccessToken(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	pairID := savePair(t, repo, 1, now, 5)

	newHash := user.HashSecret("rotated")
	exp := now.Add(time.Hour)
	require.NoError(t, repo.ReplaceAccessToken(ctx, pairID, newHash, exp))

	tok, err := repo.GetTokenByHash(ctx, user.TokenAccess, newHash)
	require.NoError(t, err)
	assert.Equal(t, pairID, tok.PairID)

	err = repo.ReplaceAccessToken(ctx, "unknown-pair", newHash, exp)
	assert.Equal(t, user.ErrTokenInvalid, err)
}

func TestTokenRepository_DeleteTokenPair(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	pairID := savePair(t, repo, 1, time.Now().UTC(), 5)
	require.NoError(t, repo.DeleteTokenPair(ctx, 1, pairID))

	tokens, err := repo.QueryUserTokens(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
