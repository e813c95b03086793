// Package event manages the calendar entries of groups.
package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/group"
)

// Statuses
const (
	StatusNew = "New"
	StatusOld = "Old"
)

var (
	nowFunc = time.Now // mockable

	ErrNotFound = core.NewNotFoundError("event not found")

	errEndsBeforeStart = core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "ends_at must be after starts_at"})

	// QueryFields may be used in list queries.
	// `status` is derived and translated to a `starts_at` condition.
	QueryFields = core.QueryFields{
		"id": core.IDField, "group_id": core.IDField, "title": core.TextField, "status": core.TextField,
		"starts_at": core.TimeField, "ends_at": core.TimeField, "created_at": core.TimeField, "updated_at": core.TimeField,
	}
)

type Event struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"` // UTC
	EndsAt      null.Time `json:"ends_at"`   // UTC
	Status      string    `json:"status"`    // never stored
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusAt returns StatusNew if the event starts after `now`, StatusOld otherwise.
func (e Event) StatusAt(now time.Time) string {
	if e.StartsAt.After(now) {
		return StatusNew
	}
	return StatusOld
}

type NewEvent struct {
	GroupID     int64      `json:"group_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.EndsAt != nil && !ne.EndsAt.After(ne.StartsAt) {
		return errEndsBeforeStart
	}
	return nil
}

type UpdateEvent struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanStringPtr(ue.Title)
	ue.Description = core.CleanStringPtr(ue.Description)
	if err := core.NotBlank("title", ue.Title); err != nil {
		return err
	}
	return validate.Struct(ue)
}

type (
	Repository interface {
		Create(ctx context.Context, e Event) (Event, error)
		Query(ctx context.Context, q core.ListQuery) ([]Event, error)
		GetByID(ctx context.Context, id int64) (Event, error)
		Update(ctx context.Context, e Event) (Event, error)
		Delete(ctx context.Context, id int64) error
	}

	// Service returns events with their Status computed at read time.
	Service interface {
		Create(ctx context.Context, ne NewEvent) (Event, error)
		Query(ctx context.Context, q core.ListQuery) ([]Event, error)
		GetByID(ctx context.Context, id int64) (Event, error)
		Update(ctx context.Context, id int64, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, id int64) error
	}

	service struct {
		repo   Repository
		groups group.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, groups group.Service) Service {
	return &service{repo: repo, groups: groups}
}

func withStatus(e Event) Event {
	e.Status = e.StatusAt(nowFunc())
	return e
}

func (svc *service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	if _, err := svc.groups.GetByID(ctx, ne.GroupID); err != nil {
		return Event{}, errors.Wrap(err, "finding group")
	}
	now := time.Now().UTC()
	e := Event{
		GroupID:     ne.GroupID,
		Title:       ne.Title,
		Description: ne.Description,
		StartsAt:    ne.StartsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ne.EndsAt != nil {
		e.EndsAt = null.TimeFrom(ne.EndsAt.UTC())
	}
	e, err := svc.repo.Create(ctx, e)
	if err != nil {
		return Event{}, err
	}
	return withStatus(e), nil
}

// statusConditions translates `status` conditions into `starts_at` ones.
func statusConditions(conds []core.Condition, now time.Time) ([]core.Condition, error) {
	out := make([]core.Condition, 0, len(conds))
	for _, c := range conds {
		if c.Field != "status" {
			out = append(out, c)
			continue
		}
		status, ok := c.Value.(string)
		if !ok || (c.Op != core.OpEquals && c.Op != core.OpNot) || (status != StatusNew && status != StatusOld) {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "where",
				Error: `status only supports equality with "New" or "Old"`,
			})
		}
		if (status == StatusNew) == (c.Op == core.OpEquals) {
			out = append(out, core.Condition{Field: "starts_at", Op: core.OpGt, Value: now.UTC()})
		} else {
			out = append(out, core.Condition{Field: "starts_at", Op: core.OpLte, Value: now.UTC()})
		}
	}
	return out, nil
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]Event, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	for _, o := range q.OrderBy {
		if o.Field == "status" {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "orderBy", Error: "cannot order by status"})
		}
	}

	now := nowFunc()
	where, err := statusConditions(q.Where, now)
	if err != nil {
		return nil, err
	}
	q.Where = where

	events, err := svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "starts_at", Ascending: true}))
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Status = events[i].StatusAt(now)
	}
	return events, nil
}

func (svc *service) GetByID(ctx context.Context, id int64) (Event, error) {
	e, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return withStatus(e), nil
}

func (svc *service) Update(ctx context.Context, id int64, ue UpdateEvent) (Event, error) {
	e, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.StartsAt != nil {
		e.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		e.EndsAt = null.TimeFrom(ue.EndsAt.UTC())
	}
	if e.EndsAt.Valid && !e.EndsAt.Time.After(e.StartsAt) {
		return Event{}, errEndsBeforeStart
	}
	e.UpdatedAt = time.Now().UTC()
	if e, err = svc.repo.Update(ctx, e); err != nil {
		return Event{}, err
	}
	return withStatus(e), nil
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}
