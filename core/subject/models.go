package subject

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
)

// QueryFields may be used in list queries.
var QueryFields = core.QueryFields{
	"id": core.IDField, "name": core.TextField, "description": core.TextField, "teacher_id": core.IDField,
	"created_at": core.TimeField, "updated_at": core.TimeField,
}

type Subject struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TeacherID   null.Int64 `json:"teacher_id"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type NewSubject struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	TeacherID   *int64 `json:"teacher_id"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

// UpdateSubject holds the changes to a Subject. A TeacherID of 0 unassigns the teacher.
type UpdateSubject struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description"`
	TeacherID   *int64  `json:"teacher_id"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Name = core.CleanStringPtr(us.Name)
	us.Description = core.CleanStringPtr(us.Description)
	if err := core.NotBlank("name", us.Name); err != nil {
		return err
	}
	return validate.Struct(us)
}

func (us *UpdateSubject) apply(sub Subject) Subject {
	if us.Name != nil {
		sub.Name = *us.Name
	}
	if us.Description != nil {
		sub.Description = *us.Description
	}
	if us.TeacherID != nil {
		if *us.TeacherID == 0 {
			sub.TeacherID = null.Int64{}
		} else {
			sub.TeacherID = null.Int64From(*us.TeacherID)
		}
	}
	return sub
}
