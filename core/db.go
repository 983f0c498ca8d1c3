package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Pagination is an offset-based page request; Page is 1-indexed.
type Pagination struct {
	Page  int
	Limit int
}

const defaultPageLimit = 10

// Clean normalizes out-of-range values.
func (p *Pagination) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta describes a page of results.
type PageMeta struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

func NewPageMeta(total int, p Pagination) PageMeta {
	lastPage := total / p.Limit
	if total%p.Limit > 0 || lastPage == 0 {
		lastPage++
	}
	return PageMeta{
		Total:       total,
		PerPage:     p.Limit,
		CurrentPage: p.Page,
		LastPage:    lastPage,
	}
}

// Paginated is the `{meta, data}` envelope returned by list endpoints.
type Paginated struct {
	Meta PageMeta    `json:"meta"`
	Data interface{} `json:"data"`
}

func NewPaginated(data interface{}, total int, p Pagination) Paginated {
	return Paginated{Meta: NewPageMeta(total, p), Data: data}
}
