package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/elimu/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "administrator"
)

var (
	AllRoles   = []Role{RoleStudent, RoleTeacher, RoleAdmin}
	StaffRoles = []Role{RoleTeacher, RoleAdmin}
)

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Title is the display form of the role, e.g. "Teacher".
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// HasAnyRole reports whether granted contains at least one of wanted.
func HasAnyRole(granted []Role, wanted ...Role) bool {
	for _, g := range granted {
		for _, w := range wanted {
			if g == w {
				return true
			}
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

func (u *User) HasRole(roles ...Role) bool {
	return HasAnyRole(u.Roles, roles...)
}

func (u *User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.HasRole(RoleTeacher) }
func (u *User) IsStudent() bool { return u.HasRole(RoleStudent) }

type StudentProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (p StudentProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type TeacherProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Title     string    `json:"title,omitempty"` // e.g. "Teacher", "Professor"
	CreatedAt time.Time `json:"created_at"`
}

func (p TeacherProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Summary is the admin listing view of a user.
type Summary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Roles     []Role `json:"roles"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Registration contains information needed to register a new student.
type Registration struct {
	Username  string `json:"username" validate:"required,notblank,max=80"`
	Email     string `json:"email" validate:"required,email,max=120"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,notblank,max=100"`
	LastName  string `json:"lastName" validate:"required,notblank,max=100"`
}

func (r *Registration) clean() {
	r.Username = core.CleanString(r.Username, true /* lower */)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.FirstName = core.CleanString(r.FirstName)
	r.LastName = core.CleanString(r.LastName)
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.clean()
	return validate.Struct(r)
}

// NewStaff contains information needed to provision a teacher or administrator.
type NewStaff struct {
	Registration
	Role Role `json:"role" validate:"required,staffrole"`
}

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.clean()
	ns.Role = Role(core.CleanString(string(ns.Role), true /* lower */))
	return validate.Struct(ns)
}

type GetFilter struct {
	ID       string
	Email    string
	Username string
	// UsernameOrEmail matches either column.
	UsernameOrEmail string
}
