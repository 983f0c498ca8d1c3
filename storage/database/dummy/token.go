package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/chuoapp/chuo/core/user"
)

type tokenRepository struct {
	db *DB
}

var _ user.TokenRepository = (*tokenRepository)(nil) // interface compliance check

func NewTokenRepository(db *DB) *tokenRepository {
	return &tokenRepository{db: db}
}

func (repo *tokenRepository) SaveTokenPair(ctx context.Context, access, refresh user.Token, maxRefresh int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	// collect the owner's refresh tokens, oldest first
	var refreshTokens []*user.Token
	for _, tok := range repo.db.tokens {
		if tok.UserID == refresh.UserID && tok.Type == user.TokenRefresh {
			refreshTokens = append(refreshTokens, tok)
		}
	}
	sort.Slice(refreshTokens, func(i, j int) bool {
		if refreshTokens[i].CreatedAt.Equal(refreshTokens[j].CreatedAt) {
			return refreshTokens[i].ID < refreshTokens[j].ID
		}
		return refreshTokens[i].CreatedAt.Before(refreshTokens[j].CreatedAt)
	})

	// evict whole pairs down to maxRefresh-1 so the incoming pair fits
	for len(refreshTokens) > maxRefresh-1 {
		evicted := refreshTokens[0]
		refreshTokens = refreshTokens[1:]
		for id, tok := range repo.db.tokens {
			if tok.PairID == evicted.PairID {
				delete(repo.db.tokens, id)
			}
		}
	}

	for _, tok := range []user.Token{access, refresh} {
		tok := tok
		tok.ID = repo.db.nextPK()
		repo.db.tokens[tok.ID] = &tok
	}
	return nil
}

func (repo *tokenRepository) GetTokenByHash(ctx context.Context, typ user.TokenType, hash string) (user.Token, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, tok := range repo.db.tokens {
		if tok.Type == typ && tok.Hash == hash {
			return *tok, nil
		}
	}
	return user.Token{}, user.ErrTokenInvalid
}

func (repo *tokenRepository) ReplaceAccessToken(ctx context.Context, pairID, hash string, expiresAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, tok := range repo.db.tokens {
		if tok.PairID == pairID && tok.Type == user.TokenAccess {
			tok.Hash = hash
			tok.CreatedAt = time.Now().UTC()
			tok.ExpiresAt = expiresAt
			return nil
		}
	}
	return user.ErrTokenInvalid
}

func (repo *tokenRepository) DeleteTokenPair(ctx context.Context, userID int, pairID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, tok := range repo.db.tokens {
		if tok.UserID == userID && tok.PairID == pairID {
			delete(repo.db.tokens, id)
		}
	}
	return nil
}

func (repo *tokenRepository) QueryUserTokens(ctx context.Context, userID int) ([]user.Token, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var tokens []user.Token
	for _, tok := range repo.db.tokens {
		if tok.UserID == userID {
			tokens = append(tokens, *tok)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].ID < tokens[j].ID
		}
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}
