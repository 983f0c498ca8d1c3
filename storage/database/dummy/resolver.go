package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
)

type chainResolver struct {
	db *DB
}

var _ access.ChainResolver = (*chainResolver)(nil) // interface compliance check

func NewChainResolver(db *DB) *chainResolver {
	return &chainResolver{db: db}
}

func (r chainResolver) Resolve(ctx context.Context, res access.Resource, id int) (access.Chain, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	notFound := core.NewNotFoundError(string(res))
	var chain access.Chain

	switch res {
	case access.ResourceCourse:
		crs, ok := r.db.courses[id]
		if !ok {
			return access.Chain{}, notFound
		}
		chain.CourseID, chain.TeacherID = crs.ID, crs.TeacherID

	case access.ResourceModule:
		mod, ok := r.db.modules[id]
		if !ok {
			return access.Chain{}, notFound
		}
		crs, ok := r.db.courses[mod.CourseID]
		if !ok {
			return access.Chain{}, notFound
		}
		chain.ModuleID, chain.CourseID, chain.TeacherID = mod.ID, crs.ID, crs.TeacherID

	case access.ResourceAssignment:
		asg, ok := r.db.assignments[id]
		if !ok {
			return access.Chain{}, notFound
		}
		mod, ok := r.db.modules[asg.ModuleID]
		if !ok {
			return access.Chain{}, notFound
		}
		crs, ok := r.db.courses[mod.CourseID]
		if !ok {
			return access.Chain{}, notFound
		}
		chain.AssignmentID, chain.ModuleID, chain.CourseID, chain.TeacherID = asg.ID, mod.ID, crs.ID, crs.TeacherID

	case access.ResourceEnrollment:
		enr, ok := r.db.enrollments[id]
		if !ok {
			return access.Chain{}, notFound
		}
		crs, ok := r.db.courses[enr.CourseID]
		if !ok {
			return access.Chain{}, notFound
		}
		chain.CourseID, chain.TeacherID, chain.StudentID = crs.ID, crs.TeacherID, enr.StudentID

	case access.ResourceGrade:
		grd, ok := r.db.grades[id]
		if !ok {
			return access.Chain{}, notFound
		}
		asgChain, err := r.resolveLocked(access.ResourceAssignment, grd.AssignmentID)
		if err != nil {
			return access.Chain{}, err
		}
		chain = asgChain
		chain.StudentID = grd.StudentID

	case access.ResourceComment:
		cmt, ok := r.db.comments[id]
		if !ok {
			return access.Chain{}, notFound
		}
		modChain, err := r.resolveLocked(access.ResourceModule, cmt.ModuleID)
		if err != nil {
			return access.Chain{}, err
		}
		chain = modChain
		chain.OwnerID = cmt.AuthorID

	case access.ResourceProgress:
		prg, ok := r.db.progress[id]
		if !ok {
			return access.Chain{}, notFound
		}
		modChain, err := r.resolveLocked(access.ResourceModule, prg.ModuleID)
		if err != nil {
			return access.Chain{}, err
		}
		chain = modChain
		chain.StudentID = prg.StudentID

	case access.ResourceFile:
		f, ok := r.db.files[id]
		if !ok {
			return access.Chain{}, notFound
		}
		courseID, teacherID := r.db.fileChain(*f)
		chain.CourseID, chain.TeacherID, chain.OwnerID = courseID, teacherID, f.OwnerID

	default:
		return access.Chain{}, errors.Errorf("no ownership chain for resource %q", res)
	}
	return chain, nil
}

// resolveLocked re-enters Resolve without retaking the lock.
func (r chainResolver) resolveLocked(res access.Resource, id int) (access.Chain, error) {
	switch res {
	case access.ResourceModule:
		mod, ok := r.db.modules[id]
		if !ok {
			return access.Chain{}, core.NewNotFoundError(string(res))
		}
		crs, ok := r.db.courses[mod.CourseID]
		if !ok {
			return access.Chain{}, core.NewNotFoundError(string(res))
		}
		return access.Chain{ModuleID: mod.ID, CourseID: crs.ID, TeacherID: crs.TeacherID}, nil
	case access.ResourceAssignment:
		asg, ok := r.db.assignments[id]
		if !ok {
			return access.Chain{}, core.NewNotFoundError(string(res))
		}
		chain, err := r.resolveLocked(access.ResourceModule, asg.ModuleID)
		if err != nil {
			return access.Chain{}, err
		}
		chain.AssignmentID = asg.ID
		return chain, nil
	}
	return access.Chain{}, errors.Errorf("no ownership chain for resource %q", res)
}
