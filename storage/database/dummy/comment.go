package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/comment"
)

type commentRepository struct {
	db *DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *DB) *commentRepository {
	return &commentRepository{db: db}
}

func (db *DB) getComment(id int) (comment.Comment, bool) {
	cmt, ok := db.comments[id]
	if !ok {
		return comment.Comment{}, false
	}
	out := *cmt
	if author, ok := db.users[out.AuthorID]; ok {
		a := *author
		out.Author = &a
	}
	if mod, ok := db.getModule(out.ModuleID); ok {
		out.Module = &mod
	}
	return out, true
}

func (repo *commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	cmt.ID = repo.db.nextPK()
	cmt.CreatedAt, cmt.UpdatedAt = now, now
	stored := cmt
	stored.Author, stored.Module = nil, nil
	repo.db.comments[cmt.ID] = &stored
	out, _ := repo.db.getComment(cmt.ID)
	return out, nil
}

func (repo *commentRepository) GetCommentByID(ctx context.Context, id int) (comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cmt, ok := repo.db.getComment(id); ok {
		return cmt, nil
	}
	return comment.Comment{}, comment.ErrNotFound
}

func (repo *commentRepository) FilterComments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]comment.Comment, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []comment.Comment
	for id := range repo.db.comments {
		cmt, _ := repo.db.getComment(id)
		var teacherID int
		if cmt.Module != nil && cmt.Module.Course != nil {
			teacherID = cmt.Module.Course.TeacherID
		}
		switch {
		case scope.All:
		case scope.TeacherID != 0 && teacherID == scope.TeacherID:
		case scope.AuthorID != 0 && cmt.AuthorID == scope.AuthorID:
		default:
			continue
		}
		matches = append(matches, cmt)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *commentRepository) UpdateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.comments[cmt.ID]; !ok {
		return comment.Comment{}, comment.ErrNotFound
	}
	cmt.UpdatedAt = time.Now().UTC()
	stored := cmt
	stored.Author, stored.Module = nil, nil
	repo.db.comments[cmt.ID] = &stored
	out, _ := repo.db.getComment(cmt.ID)
	return out, nil
}

func (repo *commentRepository) DeleteComment(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.comments[id]; !ok {
		return comment.ErrNotFound
	}
	delete(repo.db.comments, id)
	return nil
}
