package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           int       `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	MiddleName   string    `db:"middle_name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsVerified   bool      `db:"is_verified"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		MiddleName:   r.MiddleName,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		IsVerified:   r.IsVerified,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const userColumns = `id, first_name, last_name, middle_name, email, role, is_verified, password_hash, created_at, updated_at`

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id != ALL($2))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, email, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
INSERT INTO users (first_name, last_name, middle_name, email, role, is_verified, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + userColumns
	var row userRow
	err := repo.db.GetContext(ctx, &row, query,
		usr.FirstName, usr.LastName, usr.MiddleName, usr.Email, usr.Role,
		usr.IsVerified, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, trapUniqueErr(err, "user_email", "inserting user")
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	if err := repo.db.GetContext(ctx, &row, query, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by email")
	}
	return row.user(), nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, page core.Pagination) ([]user.User, int, error) {
	where := `WHERE ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'
	OR middle_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
	AND ($2 = '' OR role = $2)`

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users `+where, filter.Search, filter.Role); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, filter.Search, filter.Role, page.Limit, page.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "filtering users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, total, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
UPDATE users
SET first_name = $2, last_name = $3, middle_name = $4, email = $5, role = $6,
	is_verified = $7, password_hash = $8, updated_at = $9
WHERE id = $1
RETURNING ` + userColumns
	var row userRow
	err := repo.db.GetContext(ctx, &row, query,
		usr.ID, usr.FirstName, usr.LastName, usr.MiddleName, usr.Email, usr.Role,
		usr.IsVerified, usr.PasswordHash, time.Now().UTC(),
	)
	if err != nil {
		if err := trapNoRowsErr(err, user.ErrNotFound, ""); err == user.ErrNotFound {
			return user.User{}, err
		}
		return user.User{}, trapUniqueErr(err, "user_email", "updating user")
	}
	return row.user(), nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
