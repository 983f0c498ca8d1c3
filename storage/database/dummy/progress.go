package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (db *DB) getProgress(id int) (progress.Progress, bool) {
	prg, ok := db.progress[id]
	if !ok {
		return progress.Progress{}, false
	}
	out := *prg
	if std, ok := db.users[out.StudentID]; ok {
		s := *std
		out.Student = &s
	}
	if mod, ok := db.getModule(out.ModuleID); ok {
		out.Module = &mod
	}
	return out, true
}

func (repo *progressRepository) CheckUniqueness(ctx context.Context, studentID, moduleID int, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prg := range repo.db.progress {
		if prg.StudentID == studentID && prg.ModuleID == moduleID && !isExcluded(prg.ID, excludedIDs) {
			return core.NewConflictError(progress.InvariantStudentModule, "student already has a progress record for this module")
		}
	}
	return nil
}

func (repo *progressRepository) CreateProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	prg.ID = repo.db.nextPK()
	prg.CreatedAt, prg.UpdatedAt = now, now
	stored := prg
	stored.Student, stored.Module = nil, nil
	repo.db.progress[prg.ID] = &stored
	out, _ := repo.db.getProgress(prg.ID)
	return out, nil
}

func (repo *progressRepository) GetProgressByID(ctx context.Context, id int) (progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prg, ok := repo.db.getProgress(id); ok {
		return prg, nil
	}
	return progress.Progress{}, progress.ErrNotFound
}

func (repo *progressRepository) FilterProgress(ctx context.Context, scope access.ListScope, page core.Pagination) ([]progress.Progress, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []progress.Progress
	for id := range repo.db.progress {
		prg, _ := repo.db.getProgress(id)
		var teacherID int
		if prg.Module != nil && prg.Module.Course != nil {
			teacherID = prg.Module.Course.TeacherID
		}
		switch {
		case scope.All:
		case scope.TeacherID != 0 && teacherID == scope.TeacherID:
		case scope.StudentID != 0 && prg.StudentID == scope.StudentID:
		default:
			continue
		}
		matches = append(matches, prg)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *progressRepository) UpdateProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.progress[prg.ID]; !ok {
		return progress.Progress{}, progress.ErrNotFound
	}
	prg.UpdatedAt = time.Now().UTC()
	stored := prg
	stored.Student, stored.Module = nil, nil
	repo.db.progress[prg.ID] = &stored
	out, _ := repo.db.getProgress(prg.ID)
	return out, nil
}

func (repo *progressRepository) DeleteProgress(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.progress[id]; !ok {
		return progress.ErrNotFound
	}
	delete(repo.db.progress, id)
	return nil
}
