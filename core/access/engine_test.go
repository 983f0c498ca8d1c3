package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core/user"
)

// enrollIndexStub answers enrollment lookups from a fixed (student, course) set.
type enrollIndexStub map[[2]int]bool

func (idx enrollIndexStub) IsEnrolled(_ context.Context, studentID, courseID int) (bool, error) {
	return idx[[2]int{studentID, courseID}], nil
}

func TestEngine_Can(t *testing.T) {
	admin := Principal{ID: 1, Role: user.RoleAdmin}
	teacher := Principal{ID: 2, Role: user.RoleTeacher}
	student := Principal{ID: 3, Role: user.RoleStudent}
	otherStudent := Principal{ID: 4, Role: user.RoleStudent}
	nobody := Principal{ID: 5, Role: user.Role("visitor")}

	// student 3 is enrolled in course 10; student 4 is not
	engine := NewEngine(enrollIndexStub{{3, 10}: true})

	ownCourse := Context{TeacherID: teacher.ID, CourseID: 10}
	foreignCourse := Context{TeacherID: 99, CourseID: 11}

	tests := []struct {
		name       string
		p          Principal
		res        Resource
		action     Action
		rc         Context
		wantReason Reason
	}{
		{name: "admin full access", p: admin, res: ResourceCourse, action: ActionDelete, rc: Context{}},
		{name: "admin user management", p: admin, res: ResourceUser, action: ActionCreate, rc: Context{}},
		{name: "unknown role", p: nobody, res: ResourceCourse, action: ActionRead, rc: ownCourse, wantReason: ReasonUnknownRole},

		{name: "teacher updates own course", p: teacher, res: ResourceCourse, action: ActionUpdate, rc: ownCourse},
		{name: "teacher updates foreign course", p: teacher, res: ResourceCourse, action: ActionUpdate, rc: foreignCourse, wantReason: ReasonNotOwner},
		{name: "teacher creates course for self", p: teacher, res: ResourceCourse, action: ActionCreate, rc: Context{StudentID: teacher.ID}},
		{name: "teacher creates course for other", p: teacher, res: ResourceCourse, action: ActionCreate, rc: Context{StudentID: 99}, wantReason: ReasonNotSelf},
		{name: "empty context fails closed", p: teacher, res: ResourceCourse, action: ActionUpdate, rc: Context{}, wantReason: ReasonNotOwner},

		{name: "student reads enrolled course", p: student, res: ResourceCourse, action: ActionRead, rc: ownCourse},
		{name: "student reads foreign course", p: otherStudent, res: ResourceCourse, action: ActionRead, rc: ownCourse, wantReason: ReasonNotEnrolled},
		{name: "student cannot create course", p: student, res: ResourceCourse, action: ActionCreate, rc: Context{StudentID: student.ID}, wantReason: ReasonRoleNotPermitted},
		{name: "student cannot list users", p: student, res: ResourceUser, action: ActionList, rc: Context{}, wantReason: ReasonRoleNotPermitted},
		{name: "teacher cannot list users", p: teacher, res: ResourceUser, action: ActionList, rc: Context{}, wantReason: ReasonRoleNotPermitted},

		{name: "student enrolls self", p: student, res: ResourceEnrollment, action: ActionCreate, rc: Context{StudentID: student.ID, TeacherID: teacher.ID, CourseID: 10}},
		{name: "student enrolls peer", p: student, res: ResourceEnrollment, action: ActionCreate, rc: Context{StudentID: otherStudent.ID, TeacherID: teacher.ID, CourseID: 10}, wantReason: ReasonNotSelf},
		{name: "teacher enrolls into own course", p: teacher, res: ResourceEnrollment, action: ActionCreate, rc: Context{StudentID: student.ID, TeacherID: teacher.ID, CourseID: 10}},
		{name: "teacher enrolls into foreign course", p: teacher, res: ResourceEnrollment, action: ActionCreate, rc: Context{StudentID: student.ID, TeacherID: 99, CourseID: 11}, wantReason: ReasonNotOwner},

		{name: "student reads own grade", p: student, res: ResourceGrade, action: ActionRead, rc: Context{StudentID: student.ID}},
		{name: "student reads foreign grade", p: student, res: ResourceGrade, action: ActionRead, rc: Context{StudentID: otherStudent.ID}, wantReason: ReasonNotSelf},
		{name: "student cannot grade", p: student, res: ResourceGrade, action: ActionCreate, rc: Context{StudentID: student.ID}, wantReason: ReasonRoleNotPermitted},
		{name: "teacher grades own course", p: teacher, res: ResourceGrade, action: ActionCreate, rc: Context{TeacherID: teacher.ID, CourseID: 10, StudentID: student.ID}},
		{name: "teacher grades foreign course", p: teacher, res: ResourceGrade, action: ActionCreate, rc: Context{TeacherID: 99, CourseID: 11, StudentID: student.ID}, wantReason: ReasonNotOwner},

		{name: "student comments when enrolled", p: student, res: ResourceComment, action: ActionCreate, rc: ownCourse},
		{name: "student comments when not enrolled", p: otherStudent, res: ResourceComment, action: ActionCreate, rc: ownCourse, wantReason: ReasonNotEnrolled},
		{name: "author reads own comment", p: student, res: ResourceComment, action: ActionRead, rc: Context{OwnerID: student.ID, TeacherID: teacher.ID, CourseID: 10}},
		{
			// enrollment does not open a peer's comment
			name: "enrolled peer reads foreign comment", p: student, res: ResourceComment, action: ActionRead,
			rc: Context{OwnerID: otherStudent.ID, TeacherID: teacher.ID, CourseID: 10}, wantReason: ReasonNotOwner,
		},
		{name: "teacher reads course comment", p: teacher, res: ResourceComment, action: ActionRead, rc: Context{OwnerID: student.ID, TeacherID: teacher.ID, CourseID: 10}},
		{name: "author updates comment", p: student, res: ResourceComment, action: ActionUpdate, rc: Context{OwnerID: student.ID, TeacherID: teacher.ID, CourseID: 10}},
		{name: "non-author updates comment", p: otherStudent, res: ResourceComment, action: ActionUpdate, rc: Context{OwnerID: student.ID, TeacherID: teacher.ID, CourseID: 10}, wantReason: ReasonNotOwner},

		{name: "student reads own upload", p: student, res: ResourceFile, action: ActionRead, rc: Context{OwnerID: student.ID, TeacherID: teacher.ID, CourseID: 10}},
		{name: "student reads teacher file when enrolled", p: student, res: ResourceFile, action: ActionRead, rc: Context{OwnerID: teacher.ID, TeacherID: teacher.ID, CourseID: 10}},
		{
			// enrollment alone is not enough for a peer's upload
			name: "student reads peer file", p: student, res: ResourceFile, action: ActionRead,
			rc: Context{OwnerID: otherStudent.ID, TeacherID: teacher.ID, CourseID: 10}, wantReason: ReasonNotEnrolled,
		},
		{
			name: "unenrolled student reads teacher file", p: otherStudent, res: ResourceFile, action: ActionRead,
			rc: Context{OwnerID: teacher.ID, TeacherID: teacher.ID, CourseID: 10}, wantReason: ReasonNotEnrolled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Can(context.Background(), tt.p, tt.res, tt.action, tt.rc)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			var denied *DeniedError
			require.ErrorAs(t, err, &denied)
			assert.Equal(t, tt.wantReason, denied.Reason)
		})
	}
}

func TestEngine_ScopeList(t *testing.T) {
	engine := NewEngine(enrollIndexStub{})

	admin := Principal{ID: 1, Role: user.RoleAdmin}
	teacher := Principal{ID: 2, Role: user.RoleTeacher}
	student := Principal{ID: 3, Role: user.RoleStudent}

	t.Run("admin is unscoped", func(t *testing.T) {
		scope, err := engine.ScopeList(admin, ResourceCourse, false)
		require.NoError(t, err)
		assert.True(t, scope.All)
	})

	t.Run("all override is admin only", func(t *testing.T) {
		scope, err := engine.ScopeList(teacher, ResourceCourse, true)
		require.NoError(t, err)
		assert.False(t, scope.All)
		assert.Equal(t, teacher.ID, scope.TeacherID)
	})

	t.Run("student course listing is enrollment scoped", func(t *testing.T) {
		scope, err := engine.ScopeList(student, ResourceCourse, false)
		require.NoError(t, err)
		assert.Equal(t, student.ID, scope.EnrolledStudentID)
		assert.Zero(t, scope.TeacherID)
	})

	t.Run("student file listing combines author and teacher uploads", func(t *testing.T) {
		scope, err := engine.ScopeList(student, ResourceFile, false)
		require.NoError(t, err)
		assert.Equal(t, student.ID, scope.AuthorID)
		assert.Equal(t, student.ID, scope.EnrolledStudentID)
		assert.True(t, scope.TeacherAuthoredOnly)
	})

	t.Run("student cannot list users", func(t *testing.T) {
		_, err := engine.ScopeList(student, ResourceUser, false)
		var denied *DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, ReasonRoleNotPermitted, denied.Reason)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := engine.ScopeList(Principal{ID: 9, Role: user.Role("visitor")}, ResourceCourse, false)
		var denied *DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, ReasonUnknownRole, denied.Reason)
	})
}
