package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/user"
)

type tokenRepository struct {
	db *sqlx.DB
}

var _ user.TokenRepository = (*tokenRepository)(nil) // interface compliance check

func NewTokenRepository(db *sqlx.DB) *tokenRepository {
	return &tokenRepository{db: db}
}

type tokenRow struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	Type      string    `db:"type"`
	Hash      string    `db:"hash"`
	PairID    string    `db:"pair_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (r tokenRow) token() user.Token {
	return user.Token{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      user.TokenType(r.Type),
		Hash:      r.Hash,
		PairID:    r.PairID,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

const tokenColumns = `id, user_id, type, hash, pair_id, created_at, expires_at`

func (repo tokenRepository) SaveTokenPair(ctx context.Context, access, refresh user.Token, maxRefresh int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// an over-quota owner loses their oldest refresh token and, through the
	// shared pair id, its access token
	evictQuery := `
DELETE FROM tokens
WHERE pair_id IN (
	SELECT pair_id FROM tokens
	WHERE user_id = $1 AND type = $2
	ORDER BY created_at DESC, id DESC
	OFFSET $3
)`
	if _, err = tx.ExecContext(ctx, evictQuery, refresh.UserID, user.TokenRefresh, maxRefresh-1); err != nil {
		return errors.Wrap(err, "evicting oldest token pair")
	}

	insertQuery := `
INSERT INTO tokens (user_id, type, hash, pair_id, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, tok := range []user.Token{access, refresh} {
		if _, err = tx.ExecContext(ctx, insertQuery, tok.UserID, tok.Type, tok.Hash, tok.PairID, tok.CreatedAt, tok.ExpiresAt); err != nil {
			return errors.Wrap(err, "inserting token")
		}
	}
	return errors.Wrap(tx.Commit(), "committing token pair")
}

func (repo tokenRepository) GetTokenByHash(ctx context.Context, typ user.TokenType, hash string) (user.Token, error) {
	var row tokenRow
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE type = $1 AND hash = $2`
	if err := repo.db.GetContext(ctx, &row, query, typ, hash); err != nil {
		return user.Token{}, trapNoRowsErr(err, user.ErrTokenInvalid, "getting token")
	}
	return row.token(), nil
}

func (repo tokenRepository) ReplaceAccessToken(ctx context.Context, pairID, hash string, expiresAt time.Time) error {
	query := `
UPDATE tokens
SET hash = $2, created_at = $3, expires_at = $4
WHERE pair_id = $1 AND type = $5`
	res, err := repo.db.ExecContext(ctx, query, pairID, hash, time.Now().UTC(), expiresAt, user.TokenAccess)
	if err != nil {
		return errors.Wrap(err, "replacing access token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrTokenInvalid
	}
	return nil
}

func (repo tokenRepository) DeleteTokenPair(ctx context.Context, userID int, pairID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1 AND pair_id = $2`, userID, pairID)
	return errors.Wrap(err, "deleting token pair")
}

func (repo tokenRepository) QueryUserTokens(ctx context.Context, userID int) ([]user.Token, error) {
	var rows []tokenRow
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying user tokens")
	}
	tokens := make([]user.Token, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, row.token())
	}
	return tokens, nil
}
