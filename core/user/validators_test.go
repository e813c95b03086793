package user

import (
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	LoadCommonPasswords(nopLogger{})
	return validate
}

func fieldTags(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	tags := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags
}

func TestLoadCommonPasswords(t *testing.T) {
	LoadCommonPasswords(nopLogger{})
	assert.Greater(t, len(commonPasswords), 20000)
	assert.True(t, sort.StringsAreSorted(commonPasswords))
	for _, pwd := range []string{"p@ssw0rd", "p@$$w0rd", "password123", "qwerty", "letmein!"} {
		assert.Contains(t, commonPasswords, pwd)
	}
	assert.NotContains(t, commonPasswords, "lolc@t123")
}

func TestNewUser_Validate(t *testing.T) {
	validate := newValidator()
	pwd := "Xk9#mQ2$vLw"

	tests := []struct {
		name     string
		nu       NewUser
		wantTags map[string]string
	}{
		{
			name:     "required fields",
			nu:       NewUser{},
			wantTags: map[string]string{"name": "required", "email": "required", "password": "required", "password_confirm": "required"},
		},
		{
			name:     "invalid email & roles",
			nu:       NewUser{Name: "Hero", Email: "lol", Password: pwd, PasswordConfirm: pwd, Roles: []string{"king"}},
			wantTags: map[string]string{"email": "email", "roles": allRolesTag},
		},
		{
			name:     "passwords mismatch",
			nu:       NewUser{Name: "Hero", Email: "hero@test.cd", Password: pwd, PasswordConfirm: pwd + "1"},
			wantTags: map[string]string{"password_confirm": "eqfield"},
		},
		{
			name:     "too short",
			nu:       NewUser{Name: "Hero", Email: "hero@test.cd", Password: "Aa1#", PasswordConfirm: "Aa1#"},
			wantTags: map[string]string{"password": pwdMinLenTag},
		},
		{
			name:     "whitespace",
			nu:       NewUser{Name: "Hero", Email: "hero@test.cd", Password: "Xk9#mQ2 vLw", PasswordConfirm: "Xk9#mQ2 vLw"},
			wantTags: map[string]string{"password": pwdNoSpaceTag},
		},
		{
			name:     "all numeric",
			nu:       NewUser{Name: "Hero", Email: "hero@test.cd", Password: "918273645", PasswordConfirm: "918273645"},
			wantTags: map[string]string{"password": pwdNotAllNumTag},
		},
		{
			name:     "not complex",
			nu:       NewUser{Name: "Hero", Email: "hero@test.cd", Password: "xk9mq2vlw", PasswordConfirm: "xk9mq2vlw"},
			wantTags: map[string]string{"password": pwdComplexityTag},
		},
		{
			name:     "similar to name",
			nu:       NewUser{Name: "Hero Zulu", Email: "hz@test.cd", Password: "Herozulu1!", PasswordConfirm: "Herozulu1!"},
			wantTags: map[string]string{"password": pwdAttrSimTag},
		},
		{
			name:     "common",
			nu:       NewUser{Name: "Hero", Email: "hero@test.cd", Password: "P@ssw0rd", PasswordConfirm: "P@ssw0rd"},
			wantTags: map[string]string{"password": pwdNoCommonTag},
		},
		{
			name: "valid",
			nu:   NewUser{Name: " Hero ", Email: " HERO@test.cd", Password: pwd, PasswordConfirm: pwd, Roles: []string{RoleStudent}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(validate)
			assert.Equal(t, tt.wantTags, fieldTags(t, err))
		})
	}

	t.Run("cleans fields", func(t *testing.T) {
		nu := NewUser{Name: " Hero ", Email: " HERO@test.cd ", Password: pwd, PasswordConfirm: pwd}
		require.NoError(t, nu.Validate(validate))
		assert.Equal(t, "Hero", nu.Name)
		assert.Equal(t, "hero@test.cd", nu.Email)
	})
}

func TestUpdateUser_Validate(t *testing.T) {
	validate := newValidator()
	orig := User{ID: 1, Name: "Herodotus", Email: "hero@test.cd"}
	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name     string
		uu       UpdateUser
		wantTags map[string]string
	}{
		{name: "nothing", uu: UpdateUser{}},
		{name: "invalid email", uu: UpdateUser{Email: strPtr("lol")}, wantTags: map[string]string{"email": "email"}},
		{name: "password without confirm", uu: UpdateUser{Password: "Xk9#mQ2$vLw"}, wantTags: map[string]string{"password_confirm": "required_with"}},
		{
			name:     "password similar to current name",
			uu:       UpdateUser{Password: "Herodotus1!", PasswordConfirm: "Herodotus1!"},
			wantTags: map[string]string{"password": pwdAttrSimTag},
		},
		{name: "valid", uu: UpdateUser{Name: strPtr("Zed"), Password: "Xk9#mQ2$vLw", PasswordConfirm: "Xk9#mQ2$vLw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.uu.Validate(orig, validate)
			assert.Equal(t, tt.wantTags, fieldTags(t, err))
		})
	}
}

func TestUpdateUser_Validate_blank(t *testing.T) {
	validate := newValidator()
	blank := "  "

	err := (&UpdateUser{Name: &blank}).Validate(User{Name: "Hero"}, validate)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: "name", Error: "this field cannot be blank"}}, vErr.Fields)
}

func TestUpdateUser_Apply(t *testing.T) {
	name, noGroup := "Zed", int64(0)
	usr := User{ID: 1, Name: "Hero", Email: "hero@test.cd", Roles: []string{RoleStudent}}
	usr.GroupID.SetValid(3)

	got := (&UpdateUser{Name: &name, GroupID: &noGroup}).Apply(usr)
	assert.Equal(t, "Zed", got.Name)
	assert.False(t, got.GroupID.Valid)
	assert.Equal(t, usr.Email, got.Email)
	assert.Equal(t, usr.Roles, got.Roles)
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.Equal(t, RolePriority(RoleTeacher), MaxRolePriority([]string{RoleStudent, RoleTeacher}))
	assert.Greater(t, MaxRolePriority([]string{RoleAdmin}), MaxRolePriority([]string{RoleTeacher, RoleParent}))
}
