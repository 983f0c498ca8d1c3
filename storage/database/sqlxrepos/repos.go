// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
)

const pqUniqueViolation = "23505"

// trapNoRowsErr maps sql.ErrNoRows to the given not-found sentinel.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// intArray adapts an id slice to a postgres int[] parameter. A nil slice
// becomes the empty array so `!= ALL($n)` matches every row.
func intArray(ids []int) interface{} {
	if ids == nil {
		ids = []int{}
	}
	return pq.Array(ids)
}

// trapUniqueErr maps a unique constraint violation to a ConflictError. The
// repositories pre-check uniqueness, this catches the races the checks miss.
func trapUniqueErr(err error, invariant, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return core.NewConflictError(invariant, msg)
	}
	return errors.Wrap(err, msg)
}
