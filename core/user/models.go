package user

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chuoapp/chuo/core"
)

// Roles. A user holds exactly one; it is fixed at creation.
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

type Role string

func (r Role) Known() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	MiddleName   string    `json:"middle_name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.LastName, u.FirstName, u.MiddleName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }

// RegisterUser is the self-registration input.
type RegisterUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	MiddleName      string `json:"middle_name"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,knownrole"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// NewUser is the admin-create input; the account comes out verified.
type NewUser struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"required,knownrole"`
	Password   string `json:"password" validate:"required"`
}

type UpdateUser struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Password   string `json:"password"`
	IsVerified *bool  `json:"is_verified"`
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of the name parts or Email.
	Search string `query:"search"`
	Role   string `query:"role"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Role = core.CleanString(f.Role, true /* lower */)
}

type Repository interface {
	CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error
	CreateUser(ctx context.Context, usr User) (User, error)
	GetUserByID(ctx context.Context, id int) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// FilterUsers applies AND operation on available QueryFilter fields.
	FilterUsers(ctx context.Context, filter QueryFilter, page core.Pagination) ([]User, int, error)
	UpdateUser(ctx context.Context, usr User) (User, error)
	DeleteUser(ctx context.Context, id int) error
}
