package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campus/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleParent, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleParent:  10,
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}

	// QueryFields may be used in list queries.
	QueryFields = core.QueryFields{
		"id": core.IDField, "name": core.TextField, "email": core.TextField, "roles": core.TextArrayField,
		"online": core.BoolField, "banned": core.BoolField, "group_id": core.IDField,
		"last_login": core.TimeField, "created_at": core.TimeField, "updated_at": core.TimeField,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Roles        []string   `json:"roles"`
	Online       bool       `json:"online"`
	Banned       bool       `json:"banned"`
	GroupID      null.Int64 `json:"group_id"`
	AvatarURL    string     `json:"avatar_url"`
	PasswordHash []byte     `json:"-"`
	OTPCode      string     `json:"-"`
	OTPExpiresAt time.Time  `json:"-"`        // UTC
	LastLogin    null.Time  `json:"last_login"` // UTC
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
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

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.HasRole(RoleTeacher) }
func (u *User) IsStudent() bool { return u.HasRole(RoleStudent) }
func (u *User) IsParent() bool  { return u.HasRole(RoleParent) }

// IsStaff reports whether the user is an admin or a teacher.
func (u *User) IsStaff() bool { return u.IsAdmin() || u.IsTeacher() }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	GroupID         *int64   `json:"group_id"`
	AvatarURL       string   `json:"avatar_url" validate:"omitempty,url"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.AvatarURL = core.CleanString(nu.AvatarURL)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Nil fields are left unchanged.
type UpdateUser struct {
	Name            *string  `json:"name"`
	Email           *string  `json:"email" validate:"omitempty,email"`
	AvatarURL       *string  `json:"avatar_url" validate:"omitempty,url"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	GroupID         *int64   `json:"group_id"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	// set when checking the password policy against the user attributes
	origName, origEmail string
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	uu.Name = core.CleanStringPtr(uu.Name)
	uu.Email = core.CleanStringPtr(uu.Email, true /* lower */)
	uu.AvatarURL = core.CleanStringPtr(uu.AvatarURL)
	if err := core.NotBlank("name", uu.Name); err != nil {
		return err
	}
	if err := core.NotBlank("email", uu.Email); err != nil {
		return err
	}
	uu.origName, uu.origEmail = origUsr.Name, origUsr.Email
	return validate.Struct(uu)
}

// HasAdminFields reports whether uu changes fields only an admin may change.
func (uu *UpdateUser) HasAdminFields() bool {
	return uu.Email != nil || uu.Roles != nil || uu.GroupID != nil
}

// Apply returns usr with the provided changes applied, the password excepted.
func (uu *UpdateUser) Apply(usr User) User {
	if uu.Name != nil {
		usr.Name = *uu.Name
	}
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.AvatarURL != nil {
		usr.AvatarURL = *uu.AvatarURL
	}
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.GroupID != nil {
		if *uu.GroupID == 0 {
			usr.GroupID = null.Int64{}
		} else {
			usr.GroupID = null.Int64From(*uu.GroupID)
		}
	}
	return usr
}

// SetPassword is used to set a password: on password reset and change or from the admin CLI.
type SetPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	name, email string
}

func (sp *SetPassword) Validate(usr User, validate *validator.Validate) error {
	sp.name, sp.email = usr.Name, usr.Email
	return validate.Struct(sp)
}
