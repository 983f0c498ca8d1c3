// Package dummydb backs the repositories with in-memory tables. Tests use it
// in place of PostgreSQL.
package dummydb

import (
	"sync"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/comment"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/file"
	"github.com/chuoapp/chuo/core/grade"
	"github.com/chuoapp/chuo/core/progress"
	"github.com/chuoapp/chuo/core/user"
)

type DB struct {
	sync.RWMutex
	pk int

	users       map[int]*user.User
	tokens      map[int]*user.Token
	courses     map[int]*course.Course
	modules     map[int]*course.Module
	assignments map[int]*course.Assignment
	enrollments map[int]*enrollment.Enrollment
	grades      map[int]*grade.Grade
	progress    map[int]*progress.Progress
	comments    map[int]*comment.Comment
	files       map[int]*file.File
}

func Open() (*DB, error) {
	return &DB{
		users:       make(map[int]*user.User),
		tokens:      make(map[int]*user.Token),
		courses:     make(map[int]*course.Course),
		modules:     make(map[int]*course.Module),
		assignments: make(map[int]*course.Assignment),
		enrollments: make(map[int]*enrollment.Enrollment),
		grades:      make(map[int]*grade.Grade),
		progress:    make(map[int]*progress.Progress),
		comments:    make(map[int]*comment.Comment),
		files:       make(map[int]*file.File),
	}, nil
}

// Reset empties all tables. Intended for tests.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()

	db.pk = 0
	db.users = make(map[int]*user.User)
	db.tokens = make(map[int]*user.Token)
	db.courses = make(map[int]*course.Course)
	db.modules = make(map[int]*course.Module)
	db.assignments = make(map[int]*course.Assignment)
	db.enrollments = make(map[int]*enrollment.Enrollment)
	db.grades = make(map[int]*grade.Grade)
	db.progress = make(map[int]*progress.Progress)
	db.comments = make(map[int]*comment.Comment)
	db.files = make(map[int]*file.File)
}

// nextPK hands out table-wide unique ids. Callers hold the write lock.
func (db *DB) nextPK() int {
	db.pk++
	return db.pk
}

// paginate slices a filtered result set. Callers pass a cleaned Pagination.
func paginate(total int, page core.Pagination) (lo, hi int) {
	lo = page.Offset()
	if lo > total {
		lo = total
	}
	hi = lo + page.Limit
	if hi > total {
		hi = total
	}
	return lo, hi
}

func isExcluded(id int, excludedIDs []int) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}
