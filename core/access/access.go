// Package access is the single place where "who may do what" is decided.
// Every handler funnels through the same rule table instead of re-branching
// on roles; adding a resource kind means adding table rows, not code paths.
package access

import (
	"context"

	"github.com/chuoapp/chuo/core/user"
)

// Resource kinds the engine knows about.
const (
	ResourceUser       Resource = "users"
	ResourceCourse     Resource = "courses"
	ResourceModule     Resource = "modules"
	ResourceAssignment Resource = "assignments"
	ResourceEnrollment Resource = "enrollments"
	ResourceGrade      Resource = "grades"
	ResourceComment    Resource = "comments"
	ResourceProgress   Resource = "progress"
	ResourceFile       Resource = "files"
)

type Resource string

var AllResources = []Resource{
	ResourceUser, ResourceCourse, ResourceModule, ResourceAssignment,
	ResourceEnrollment, ResourceGrade, ResourceComment, ResourceProgress, ResourceFile,
}

func (r Resource) Known() bool {
	for _, res := range AllResources {
		if r == res {
			return true
		}
	}
	return false
}

// Actions.
const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Action string

// Grants are the conditions under which a role may perform an action.
// A rule row lists grants combined with OR; rows order grants from the
// narrowest to the broadest, and a denial reports the broadest reason.
const (
	// GrantAny allows unconditionally.
	GrantAny Grant = "any"
	// GrantCourseOwner requires the principal to be the owning teacher of
	// the resource's course (via the ownership chain).
	GrantCourseOwner Grant = "course-owner"
	// GrantAuthor requires the principal to have created the record
	// (comment author, file uploader).
	GrantAuthor Grant = "author"
	// GrantSelf requires the record's target student/user to be the principal.
	GrantSelf Grant = "self"
	// GrantEnrolled requires the principal to hold an enrollment in the
	// resource's course.
	GrantEnrolled Grant = "enrolled"
	// GrantEnrolledTeacherFile is the file-read special case: the principal
	// is enrolled in the file's course AND the file was uploaded by that
	// course's teacher.
	GrantEnrolledTeacherFile Grant = "enrolled-teacher-file"
)

type Grant string

// Denial reasons; a stable taxonomy, never free text.
const (
	ReasonUnknownRole      Reason = "unknown_role"
	ReasonRoleNotPermitted Reason = "role_not_permitted"
	ReasonNotOwner         Reason = "not_owner"
	ReasonNotSelf          Reason = "not_self"
	ReasonNotEnrolled      Reason = "not_enrolled"
)

type Reason string

var grantReasons = map[Grant]Reason{
	GrantCourseOwner:         ReasonNotOwner,
	GrantAuthor:              ReasonNotOwner,
	GrantSelf:                ReasonNotSelf,
	GrantEnrolled:            ReasonNotEnrolled,
	GrantEnrolledTeacherFile: ReasonNotEnrolled,
}

// DeniedError is a policy denial; Reason is one of the taxonomy values above
// and Message an optional localized text for display.
type DeniedError struct {
	Reason  Reason
	Message string
}

func Deny(reason Reason, msg string) error {
	return &DeniedError{Reason: reason, Message: msg}
}

func (err DeniedError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	return "permission denied: " + string(err.Reason)
}

// Principal is the authenticated actor making a request.
type Principal struct {
	ID   int
	Role user.Role
}

func (p Principal) IsAdmin() bool { return p.Role == user.RoleAdmin }

// Context supplies whatever target identifiers are available for a decision.
// Zero values mean "unknown"; a grant whose inputs are unknown fails closed.
type Context struct {
	TeacherID int // owning teacher, via the ownership chain
	CourseID  int // owning course, via the ownership chain
	OwnerID   int // record author/uploader
	StudentID int // target student (enrollment/grade/progress)
}

// Chain is the resolved ownership path of a resource:
// File/Assignment -> Module -> Course -> Teacher.
type Chain struct {
	TeacherID    int
	CourseID     int
	ModuleID     int
	AssignmentID int
	OwnerID      int // author/uploader, where the resource has one
	StudentID    int // target student, where the resource has one
}

func (c Chain) Context() Context {
	return Context{
		TeacherID: c.TeacherID,
		CourseID:  c.CourseID,
		OwnerID:   c.OwnerID,
		StudentID: c.StudentID,
	}
}

// ChainResolver walks a resource's foreign-key chain up to its course and
// owning teacher. A broken link is a core.NotFoundError, an expected state
// given cascading deletes.
type ChainResolver interface {
	Resolve(ctx context.Context, res Resource, id int) (Chain, error)
}

// EnrollmentIndex answers "is student S enrolled in course C?".
type EnrollmentIndex interface {
	IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
}
