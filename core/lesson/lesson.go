package lesson

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/subject"
)

var (
	ErrNotFound = core.NewNotFoundError("lesson not found")

	errEndsBeforeStart = core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "ends_at must be after starts_at"})

	// QueryFields may be used in list queries.
	QueryFields = core.QueryFields{
		"id": core.IDField, "subject_id": core.IDField, "title": core.TextField, "room": core.TextField,
		"starts_at": core.TimeField, "ends_at": core.TimeField, "created_at": core.TimeField, "updated_at": core.TimeField,
	}
)

type Lesson struct {
	ID          int64     `json:"id"`
	SubjectID   int64     `json:"subject_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Room        string    `json:"room"`
	StartsAt    time.Time `json:"starts_at"` // UTC
	EndsAt      time.Time `json:"ends_at"`   // UTC
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewLesson struct {
	SubjectID   int64     `json:"subject_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	Room        string    `json:"room" validate:"max=50"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.Room = core.CleanString(nl.Room)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	Room        *string    `json:"room" validate:"omitempty,max=50"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanStringPtr(ul.Title)
	ul.Description = core.CleanStringPtr(ul.Description)
	ul.Room = core.CleanStringPtr(ul.Room)
	if err := core.NotBlank("title", ul.Title); err != nil {
		return err
	}
	return validate.Struct(ul)
}

func (ul *UpdateLesson) apply(l Lesson) Lesson {
	if ul.Title != nil {
		l.Title = *ul.Title
	}
	if ul.Description != nil {
		l.Description = *ul.Description
	}
	if ul.Room != nil {
		l.Room = *ul.Room
	}
	if ul.StartsAt != nil {
		l.StartsAt = ul.StartsAt.UTC()
	}
	if ul.EndsAt != nil {
		l.EndsAt = ul.EndsAt.UTC()
	}
	return l
}

type (
	Repository interface {
		Create(ctx context.Context, l Lesson) (Lesson, error)
		Query(ctx context.Context, q core.ListQuery) ([]Lesson, error)
		GetByID(ctx context.Context, id int64) (Lesson, error)
		Update(ctx context.Context, l Lesson) (Lesson, error)
		Delete(ctx context.Context, id int64) error
	}

	Service interface {
		Create(ctx context.Context, nl NewLesson) (Lesson, error)
		Query(ctx context.Context, q core.ListQuery) ([]Lesson, error)
		GetByID(ctx context.Context, id int64) (Lesson, error)
		Update(ctx context.Context, id int64, ul UpdateLesson) (Lesson, error)
		Delete(ctx context.Context, id int64) error
	}

	service struct {
		repo     Repository
		subjects subject.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subjects subject.Service) Service {
	return &service{repo: repo, subjects: subjects}
}

func (svc *service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	if _, err := svc.subjects.GetByID(ctx, nl.SubjectID); err != nil {
		return Lesson{}, errors.Wrap(err, "finding subject")
	}
	now := time.Now().UTC()
	return svc.repo.Create(ctx, Lesson{
		SubjectID:   nl.SubjectID,
		Title:       nl.Title,
		Description: nl.Description,
		Room:        nl.Room,
		StartsAt:    nl.StartsAt.UTC(),
		EndsAt:      nl.EndsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]Lesson, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "starts_at", Ascending: true}))
}

func (svc *service) GetByID(ctx context.Context, id int64) (Lesson, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int64, ul UpdateLesson) (Lesson, error) {
	l, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	l = ul.apply(l)
	if !l.EndsAt.After(l.StartsAt) {
		return Lesson{}, errEndsBeforeStart
	}
	l.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, l)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}
