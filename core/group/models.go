package group

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// QueryFields may be used in list queries.
var QueryFields = core.QueryFields{
	"id": core.IDField, "name": core.TextField, "description": core.TextField,
	"created_at": core.TimeField, "updated_at": core.TimeField,
}

type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewGroup struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
	return validate.Struct(ng)
}

type UpdateGroup struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanStringPtr(ug.Name)
	ug.Description = core.CleanStringPtr(ug.Description)
	if err := core.NotBlank("name", ug.Name); err != nil {
		return err
	}
	return validate.Struct(ug)
}

// MemberRequest identifies the user to invite to, or remove from, a group.
type MemberRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// SubjectRequest identifies the subject to link to a group.
type SubjectRequest struct {
	SubjectID int64 `json:"subject_id" validate:"required"`
}
