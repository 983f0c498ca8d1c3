package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (db *DB) getGrade(id int) (grade.Grade, bool) {
	grd, ok := db.grades[id]
	if !ok {
		return grade.Grade{}, false
	}
	out := *grd
	if std, ok := db.users[out.StudentID]; ok {
		s := *std
		out.Student = &s
	}
	if asg, ok := db.getAssignment(out.AssignmentID); ok {
		out.Assignment = &asg
	}
	return out, true
}

func (db *DB) gradeCourseID(grd grade.Grade) int {
	if grd.Assignment != nil && grd.Assignment.Module != nil {
		return grd.Assignment.Module.CourseID
	}
	return 0
}

func (repo *gradeRepository) CheckUniqueness(ctx context.Context, studentID, assignmentID int, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, grd := range repo.db.grades {
		if grd.StudentID == studentID && grd.AssignmentID == assignmentID && !isExcluded(grd.ID, excludedIDs) {
			return core.NewConflictError(grade.InvariantStudentAssignment, "student already has a grade for this assignment")
		}
	}
	return nil
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	grd.ID = repo.db.nextPK()
	grd.CreatedAt, grd.UpdatedAt = now, now
	stored := grd
	stored.Student, stored.Assignment = nil, nil
	repo.db.grades[grd.ID] = &stored
	out, _ := repo.db.getGrade(grd.ID)
	return out, nil
}

func (repo *gradeRepository) GetGradeByID(ctx context.Context, id int) (grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grd, ok := repo.db.getGrade(id); ok {
		return grd, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) FilterGrades(ctx context.Context, scope access.ListScope, page core.Pagination) ([]grade.Grade, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []grade.Grade
	for id := range repo.db.grades {
		grd, _ := repo.db.getGrade(id)
		courseID := repo.db.gradeCourseID(grd)
		crs, hasCourse := repo.db.getCourse(courseID)
		switch {
		case scope.All:
		case scope.TeacherID != 0 && hasCourse && crs.TeacherID == scope.TeacherID:
		case scope.StudentID != 0 && grd.StudentID == scope.StudentID:
		default:
			continue
		}
		matches = append(matches, grd)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.grades[grd.ID]; !ok {
		return grade.Grade{}, grade.ErrNotFound
	}
	grd.UpdatedAt = time.Now().UTC()
	stored := grd
	stored.Student, stored.Assignment = nil, nil
	repo.db.grades[grd.ID] = &stored
	out, _ := repo.db.getGrade(grd.ID)
	return out, nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.grades, id)
	return nil
}
