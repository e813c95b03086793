package task

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
)

// QueryFields may be used in list queries.
var QueryFields = core.QueryFields{
	"id": core.IDField, "subject_id": core.IDField, "lesson_id": core.IDField, "title": core.TextField,
	"due_at": core.TimeField, "created_at": core.TimeField, "updated_at": core.TimeField,
}

type Task struct {
	ID          int64      `json:"id"`
	SubjectID   int64      `json:"subject_id"`
	LessonID    null.Int64 `json:"lesson_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueAt       null.Time  `json:"due_at"`     // UTC
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type NewTask struct {
	SubjectID   int64      `json:"subject_id" validate:"required"`
	LessonID    *int64     `json:"lesson_id"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// UpdateTask holds the changes to a Task. A LessonID of 0 detaches the task from its lesson.
type UpdateTask struct {
	LessonID    *int64     `json:"lesson_id"`
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	DueAt       *time.Time `json:"due_at"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanStringPtr(ut.Title)
	ut.Description = core.CleanStringPtr(ut.Description)
	if err := core.NotBlank("title", ut.Title); err != nil {
		return err
	}
	return validate.Struct(ut)
}

func (ut *UpdateTask) apply(t Task) Task {
	if ut.LessonID != nil {
		if *ut.LessonID == 0 {
			t.LessonID = null.Int64{}
		} else {
			t.LessonID = null.Int64From(*ut.LessonID)
		}
	}
	if ut.Title != nil {
		t.Title = *ut.Title
	}
	if ut.Description != nil {
		t.Description = *ut.Description
	}
	if ut.DueAt != nil {
		t.DueAt = null.TimeFrom(ut.DueAt.UTC())
	}
	return t
}
