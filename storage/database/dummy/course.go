package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// read helpers; callers hold at least the read lock

func (db *DB) getCourse(id int) (course.Course, bool) {
	crs, ok := db.courses[id]
	if !ok {
		return course.Course{}, false
	}
	out := *crs
	if teacher, ok := db.users[out.TeacherID]; ok {
		t := *teacher
		out.Teacher = &t
	}
	return out, true
}

func (db *DB) getModule(id int) (course.Module, bool) {
	mod, ok := db.modules[id]
	if !ok {
		return course.Module{}, false
	}
	out := *mod
	if crs, ok := db.getCourse(out.CourseID); ok {
		crs.Teacher = nil
		out.Course = &crs
	}
	return out, true
}

func (db *DB) getAssignment(id int) (course.Assignment, bool) {
	asg, ok := db.assignments[id]
	if !ok {
		return course.Assignment{}, false
	}
	out := *asg
	if mod, ok := db.getModule(out.ModuleID); ok {
		out.Module = &mod
	}
	return out, true
}

func (db *DB) isEnrolled(studentID, courseID int) bool {
	for _, enr := range db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return true
		}
	}
	return false
}

// courseInScope reports whether the course passes the OR-combined scope legs.
func (db *DB) courseInScope(crs course.Course, scope access.ListScope) bool {
	if scope.All {
		return true
	}
	if scope.TeacherID != 0 && crs.TeacherID == scope.TeacherID {
		return true
	}
	if scope.EnrolledStudentID != 0 && db.isEnrolled(scope.EnrolledStudentID, crs.ID) {
		return true
	}
	return false
}

// Courses

func (repo *courseRepository) CheckCourseTitleUniqueness(ctx context.Context, title string, teacherID int, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.TeacherID == teacherID && strings.EqualFold(crs.Title, title) && !isExcluded(crs.ID, excludedIDs) {
			return core.NewConflictError(course.InvariantCourseTitle, "this teacher already has a course with this title")
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = repo.db.nextPK()
	stored := crs
	stored.Teacher = nil
	repo.db.courses[crs.ID] = &stored
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.getCourse(id); ok {
		return crs, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) FilterCourses(ctx context.Context, scope access.ListScope, page core.Pagination) ([]course.Course, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []course.Course
	for id := range repo.db.courses {
		crs, _ := repo.db.getCourse(id)
		if repo.db.courseInScope(crs, scope) {
			matches = append(matches, crs)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	crs.UpdatedAt = time.Now().UTC()
	stored := crs
	stored.Teacher = nil
	repo.db.courses[crs.ID] = &stored
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrCourseNotFound
	}
	delete(repo.db.courses, id)

	// cascade like the real schema does
	for mid, mod := range repo.db.modules {
		if mod.CourseID == id {
			repo.db.deleteModuleCascade(mid)
		}
	}
	for eid, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			delete(repo.db.enrollments, eid)
		}
	}
	return nil
}

// Modules

func (repo *courseRepository) CheckModuleTitleUniqueness(ctx context.Context, title string, courseID int, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, mod := range repo.db.modules {
		if mod.CourseID == courseID && strings.EqualFold(mod.Title, title) && !isExcluded(mod.ID, excludedIDs) {
			return core.NewConflictError(course.InvariantModuleTitle, "this course already has a module with this title")
		}
	}
	return nil
}

func (repo *courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mod.ID = repo.db.nextPK()
	stored := mod
	stored.Course = nil
	repo.db.modules[mod.ID] = &stored
	out, _ := repo.db.getModule(mod.ID)
	return out, nil
}

func (repo *courseRepository) GetModuleByID(ctx context.Context, id int) (course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mod, ok := repo.db.getModule(id); ok {
		return mod, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *courseRepository) FilterModules(ctx context.Context, scope access.ListScope, page core.Pagination) ([]course.Module, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []course.Module
	for id := range repo.db.modules {
		mod, _ := repo.db.getModule(id)
		crs, ok := repo.db.getCourse(mod.CourseID)
		if ok && repo.db.courseInScope(crs, scope) {
			matches = append(matches, mod)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CourseID != matches[j].CourseID {
			return matches[i].CourseID < matches[j].CourseID
		}
		if matches[i].OrderNum != matches[j].OrderNum {
			return matches[i].OrderNum < matches[j].OrderNum
		}
		return matches[i].ID < matches[j].ID
	})

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *courseRepository) UpdateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules[mod.ID]; !ok {
		return course.Module{}, course.ErrModuleNotFound
	}
	mod.UpdatedAt = time.Now().UTC()
	stored := mod
	stored.Course = nil
	repo.db.modules[mod.ID] = &stored
	out, _ := repo.db.getModule(mod.ID)
	return out, nil
}

func (repo *courseRepository) DeleteModule(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return course.ErrModuleNotFound
	}
	repo.db.deleteModuleCascade(id)
	return nil
}

// deleteModuleCascade removes a module with its assignments, grades, progress
// records and comments. Callers hold the write lock.
func (db *DB) deleteModuleCascade(id int) {
	delete(db.modules, id)
	for aid, asg := range db.assignments {
		if asg.ModuleID == id {
			delete(db.assignments, aid)
			for gid, grd := range db.grades {
				if grd.AssignmentID == aid {
					delete(db.grades, gid)
				}
			}
		}
	}
	for pid, prg := range db.progress {
		if prg.ModuleID == id {
			delete(db.progress, pid)
		}
	}
	for cid, cmt := range db.comments {
		if cmt.ModuleID == id {
			delete(db.comments, cid)
		}
	}
}

// Assignments

func (repo *courseRepository) CheckAssignmentTitleUniqueness(ctx context.Context, title string, moduleID int, excludedIDs ...int) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, asg := range repo.db.assignments {
		if asg.ModuleID == moduleID && strings.EqualFold(asg.Title, title) && !isExcluded(asg.ID, excludedIDs) {
			return core.NewConflictError(course.InvariantAssignmentTitle, "this module already has an assignment with this title")
		}
	}
	return nil
}

func (repo *courseRepository) CreateAssignment(ctx context.Context, asg course.Assignment) (course.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	asg.ID = repo.db.nextPK()
	stored := asg
	stored.Module = nil
	repo.db.assignments[asg.ID] = &stored
	out, _ := repo.db.getAssignment(asg.ID)
	return out, nil
}

func (repo *courseRepository) GetAssignmentByID(ctx context.Context, id int) (course.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if asg, ok := repo.db.getAssignment(id); ok {
		return asg, nil
	}
	return course.Assignment{}, course.ErrAssignmentNotFound
}

func (repo *courseRepository) FilterAssignments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]course.Assignment, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []course.Assignment
	for id := range repo.db.assignments {
		asg, _ := repo.db.getAssignment(id)
		if asg.Module == nil {
			continue
		}
		crs, ok := repo.db.getCourse(asg.Module.CourseID)
		if ok && repo.db.courseInScope(crs, scope) {
			matches = append(matches, asg)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].DueDate.Equal(matches[j].DueDate) {
			return matches[i].DueDate.Before(matches[j].DueDate)
		}
		return matches[i].ID < matches[j].ID
	})

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *courseRepository) UpdateAssignment(ctx context.Context, asg course.Assignment) (course.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[asg.ID]; !ok {
		return course.Assignment{}, course.ErrAssignmentNotFound
	}
	asg.UpdatedAt = time.Now().UTC()
	stored := asg
	stored.Module = nil
	repo.db.assignments[asg.ID] = &stored
	out, _ := repo.db.getAssignment(asg.ID)
	return out, nil
}

func (repo *courseRepository) DeleteAssignment(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return course.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	for gid, grd := range repo.db.grades {
		if grd.AssignmentID == id {
			delete(repo.db.grades, gid)
		}
	}
	return nil
}
