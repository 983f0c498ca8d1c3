package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/user"
)

// Engine evaluates the rule table. It is stateless; every decision reads the
// current persisted facts through the enrollment index and the contexts the
// services resolve from the ownership chain.
type Engine struct {
	rules  RuleTable
	enroll EnrollmentIndex
}

func NewEngine(enroll EnrollmentIndex) *Engine {
	return &Engine{rules: DefaultRules, enroll: enroll}
}

// Can decides whether the principal may perform the action on the resource
// described by rc. It returns nil on allow and a *DeniedError on deny; any
// other error is an infrastructure failure.
func (e *Engine) Can(ctx context.Context, p Principal, res Resource, action Action, rc Context) error {
	if !p.Role.Known() {
		return Deny(ReasonUnknownRole, "unknown role")
	}

	grants := e.grantsFor(p.Role, res, action)
	if len(grants) == 0 {
		return Deny(ReasonRoleNotPermitted, "this role may not "+string(action)+" "+string(res))
	}

	for _, grant := range grants {
		ok, err := e.satisfied(ctx, grant, p, rc)
		if err != nil {
			return errors.Wrapf(err, "checking %s grant", grant)
		}
		if ok {
			return nil
		}
	}

	// grants are ordered narrow to broad; report the broadest miss
	return Deny(grantReasons[grants[len(grants)-1]], "")
}

// ScopeList translates an allowed listing request into the constraints the
// repositories apply before data leaves persistence. The all override is
// honored for admins only; for any other role the listing stays scoped.
func (e *Engine) ScopeList(p Principal, res Resource, all bool) (ListScope, error) {
	if !p.Role.Known() {
		return ListScope{}, Deny(ReasonUnknownRole, "unknown role")
	}
	if p.IsAdmin() {
		return ListScope{All: true}, nil
	}
	_ = all // no effect outside admin

	grants := e.grantsFor(p.Role, res, ActionList)
	if len(grants) == 0 {
		return ListScope{}, Deny(ReasonRoleNotPermitted, "this role may not list "+string(res))
	}

	var scope ListScope
	for _, grant := range grants {
		switch grant {
		case GrantAny:
			scope.All = true
		case GrantCourseOwner:
			scope.TeacherID = p.ID
		case GrantAuthor:
			scope.AuthorID = p.ID
		case GrantSelf:
			scope.StudentID = p.ID
		case GrantEnrolled:
			scope.EnrolledStudentID = p.ID
		case GrantEnrolledTeacherFile:
			scope.EnrolledStudentID = p.ID
			scope.TeacherAuthoredOnly = true
		}
	}
	return scope, nil
}

func (e *Engine) grantsFor(role user.Role, res Resource, action Action) []Grant {
	byRole, ok := e.rules[res]
	if !ok {
		return nil
	}
	byAction, ok := byRole[role]
	if !ok {
		return nil
	}
	return byAction[action]
}

func (e *Engine) satisfied(ctx context.Context, grant Grant, p Principal, rc Context) (bool, error) {
	switch grant {
	case GrantAny:
		return true, nil
	case GrantCourseOwner:
		return rc.TeacherID != 0 && rc.TeacherID == p.ID, nil
	case GrantAuthor:
		return rc.OwnerID != 0 && rc.OwnerID == p.ID, nil
	case GrantSelf:
		return rc.StudentID != 0 && rc.StudentID == p.ID, nil
	case GrantEnrolled:
		if rc.CourseID == 0 {
			return false, nil
		}
		return e.enroll.IsEnrolled(ctx, p.ID, rc.CourseID)
	case GrantEnrolledTeacherFile:
		if rc.CourseID == 0 || rc.OwnerID == 0 || rc.OwnerID != rc.TeacherID {
			return false, nil
		}
		return e.enroll.IsEnrolled(ctx, p.ID, rc.CourseID)
	}
	return false, nil
}

// ListScope narrows a list query to the rows a principal may see. Set fields
// combine with OR; the repositories translate them into joins and filters.
type ListScope struct {
	All bool // unscoped (admin)

	TeacherID         int // rows under courses owned by this teacher
	StudentID         int // rows belonging to this student
	AuthorID          int // rows authored/uploaded by this user
	EnrolledStudentID int // rows under courses this student is enrolled in

	// TeacherAuthoredOnly restricts the EnrolledStudentID leg of a file
	// listing to files uploaded by the course's own teacher.
	TeacherAuthoredOnly bool
}
