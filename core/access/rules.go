package access

import "github.com/chuoapp/chuo/core/user"

type (
	actionGrants map[Action][]Grant
	roleRules    map[user.Role]actionGrants

	// RuleTable is the immutable role×resource×action policy, loaded once at
	// process start. Unlisted role-action pairs are hard denies (closed world).
	RuleTable map[Resource]roleRules
)

var adminFull = actionGrants{
	ActionList:   {GrantAny},
	ActionRead:   {GrantAny},
	ActionCreate: {GrantAny},
	ActionUpdate: {GrantAny},
	ActionDelete: {GrantAny},
}

// DefaultRules encodes the per-role, per-resource policy. Admin bypasses
// ownership and enrollment checks everywhere; data invariants (enrollment
// pre-conditions, uniqueness) are enforced by the services regardless of role.
var DefaultRules = RuleTable{
	ResourceUser: {
		user.RoleAdmin: adminFull,
		// students/teachers reach their own record through /auth/me only
	},
	ResourceCourse: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantSelf}, // may only create under their own account
			ActionUpdate: {GrantCourseOwner},
			ActionDelete: {GrantCourseOwner},
		},
		user.RoleStudent: {
			ActionList: {GrantEnrolled},
			ActionRead: {GrantEnrolled},
		},
	},
	ResourceModule: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantCourseOwner},
			ActionDelete: {GrantCourseOwner},
		},
		user.RoleStudent: {
			ActionList: {GrantEnrolled},
			ActionRead: {GrantEnrolled},
		},
	},
	ResourceAssignment: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantCourseOwner},
			ActionDelete: {GrantCourseOwner},
		},
		user.RoleStudent: {
			ActionList: {GrantEnrolled},
			ActionRead: {GrantEnrolled},
		},
	},
	ResourceEnrollment: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantCourseOwner},
			ActionDelete: {GrantCourseOwner},
		},
		user.RoleStudent: {
			ActionList:   {GrantSelf},
			ActionRead:   {GrantSelf},
			ActionCreate: {GrantSelf},
			ActionUpdate: {GrantSelf},
			ActionDelete: {GrantSelf},
		},
	},
	ResourceGrade: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantCourseOwner},
			ActionDelete: {GrantCourseOwner},
		},
		user.RoleStudent: {
			ActionList: {GrantSelf},
			ActionRead: {GrantSelf},
		},
	},
	ResourceComment: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantAuthor},
			ActionDelete: {GrantAuthor},
		},
		user.RoleStudent: {
			// students see their own words only; the thread is the teacher's view
			ActionList:   {GrantAuthor},
			ActionRead:   {GrantAuthor},
			ActionCreate: {GrantEnrolled},
			ActionUpdate: {GrantAuthor},
			ActionDelete: {GrantAuthor},
		},
	},
	ResourceProgress: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantCourseOwner},
			ActionRead:   {GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantCourseOwner},
			ActionDelete: {GrantCourseOwner},
		},
		user.RoleStudent: {
			ActionList:   {GrantSelf},
			ActionRead:   {GrantSelf},
			ActionCreate: {GrantSelf},
		},
	},
	ResourceFile: {
		user.RoleAdmin: adminFull,
		user.RoleTeacher: {
			ActionList:   {GrantAuthor, GrantCourseOwner},
			ActionRead:   {GrantAuthor, GrantCourseOwner},
			ActionCreate: {GrantCourseOwner},
			ActionUpdate: {GrantAuthor},
			ActionDelete: {GrantAuthor},
		},
		user.RoleStudent: {
			ActionList:   {GrantAuthor, GrantEnrolledTeacherFile},
			ActionRead:   {GrantAuthor, GrantEnrolledTeacherFile},
			ActionCreate: {GrantEnrolled},
			ActionUpdate: {GrantAuthor},
			ActionDelete: {GrantAuthor},
		},
	},
}
