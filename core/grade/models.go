package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// QueryFields may be used in list queries.
var QueryFields = core.QueryFields{
	"id": core.IDField, "user_id": core.IDField, "task_id": core.IDField, "score": core.NumberField,
	"created_at": core.TimeField, "updated_at": core.TimeField,
}

type TaskGrade struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TaskID    int64     `json:"task_id"`
	Score     float64   `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewTaskGrade struct {
	UserID  int64    `json:"user_id" validate:"required"`
	TaskID  int64    `json:"task_id" validate:"required"`
	Score   *float64 `json:"score" validate:"required,gte=0,lte=100"`
	Comment string   `json:"comment" validate:"max=1000"`
}

func (ng *NewTaskGrade) Validate(validate *validator.Validate) error {
	ng.Comment = core.CleanString(ng.Comment)
	return validate.Struct(ng)
}

type UpdateTaskGrade struct {
	Score   *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
	Comment *string  `json:"comment" validate:"omitempty,max=1000"`
}

func (ug *UpdateTaskGrade) Validate(validate *validator.Validate) error {
	ug.Comment = core.CleanStringPtr(ug.Comment)
	return validate.Struct(ug)
}

// Score is a grade joined with the subject of its task.
type Score struct {
	UserID      int64
	SubjectID   int64
	SubjectName string
	Score       float64
}

// SubjectAverage is the average score of a student in a subject.
type SubjectAverage struct {
	SubjectID   int64   `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Average     float64 `json:"average"`
	Grades      int     `json:"grades"`
}

// StudentReport is a line of a GroupReport.
type StudentReport struct {
	Rank     int              `json:"rank"`
	UserID   int64            `json:"user_id"`
	Name     string           `json:"name"`
	Average  float64          `json:"average"`
	Subjects []SubjectAverage `json:"subjects"`
}

// GroupReport ranks the students of a group by their overall average.
type GroupReport struct {
	GroupID   int64           `json:"group_id"`
	GroupName string          `json:"group_name"`
	Students  []StudentReport `json:"students"`
}
