package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var (
	_ enrollment.Repository  = (*enrollmentRepository)(nil) // interface compliance check
	_ access.EnrollmentIndex = (*enrollmentRepository)(nil)
)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (db *DB) getEnrollment(id int) (enrollment.Enrollment, bool) {
	enr, ok := db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, false
	}
	out := *enr
	if std, ok := db.users[out.StudentID]; ok {
		s := *std
		out.Student = &s
	}
	if crs, ok := db.getCourse(out.CourseID); ok {
		out.Course = &crs
	}
	return out, true
}

func (repo *enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.isEnrolled(studentID, courseID), nil
}

func (repo *enrollmentRepository) CheckUniqueness(ctx context.Context, studentID, courseID int, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID && !isExcluded(enr.ID, excludedIDs) {
			return core.NewConflictError(enrollment.InvariantStudentCourse, "student is already enrolled in this course")
		}
	}
	return nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr.ID = repo.db.nextPK()
	stored := enr
	stored.Student, stored.Course = nil, nil
	repo.db.enrollments[enr.ID] = &stored
	out, _ := repo.db.getEnrollment(enr.ID)
	return out, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.getEnrollment(id); ok {
		return enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) FilterEnrollments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]enrollment.Enrollment, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []enrollment.Enrollment
	for id := range repo.db.enrollments {
		enr, _ := repo.db.getEnrollment(id)
		switch {
		case scope.All:
		case scope.TeacherID != 0 && enr.Course != nil && enr.Course.TeacherID == scope.TeacherID:
		case scope.StudentID != 0 && enr.StudentID == scope.StudentID:
		default:
			continue
		}
		matches = append(matches, enr)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	enr.UpdatedAt = time.Now().UTC()
	stored := enr
	stored.Student, stored.Course = nil, nil
	repo.db.enrollments[enr.ID] = &stored
	out, _ := repo.db.getEnrollment(enr.ID)
	return out, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}
