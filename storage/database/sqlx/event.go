package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
)

const eventColumns = "id, group_id, title, description, starts_at, ends_at, created_at, updated_at"

type eventRow struct {
	ID          int64     `db:"id"`
	GroupID     int64     `db:"group_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	StartsAt    time.Time `db:"starts_at"`
	EndsAt      null.Time `db:"ends_at"`
	Status      string    `db:"-"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r eventRow) toEvent() event.Event {
	e := event.Event(r)
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = utcTime(e.EndsAt)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) Create(ctx context.Context, e event.Event) (event.Event, error) {
	stmt := psql.Insert("events").
		Columns("group_id", "title", "description", "starts_at", "ends_at", "created_at", "updated_at").
		Values(e.GroupID, e.Title, e.Description, e.StartsAt, e.EndsAt, e.CreatedAt, e.UpdatedAt).
		Suffix("RETURNING " + eventColumns)

	var row eventRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) Query(ctx context.Context, q core.ListQuery) ([]event.Event, error) {
	stmt, err := applyListQuery(psql.Select(eventColumns).From("events"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []eventRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, len(rows))
	for i, r := range rows {
		events[i] = r.toEvent()
	}
	return events, nil
}

func (repo *eventRepository) GetByID(ctx context.Context, id int64) (event.Event, error) {
	var row eventRow
	if err := get(ctx, repo.db, &row, psql.Select(eventColumns).From("events").Where(sq.Eq{"id": id})); err != nil {
		return event.Event{}, notFoundOr(err, event.ErrNotFound, "selecting event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) Update(ctx context.Context, e event.Event) (event.Event, error) {
	stmt := psql.Update("events").
		SetMap(map[string]interface{}{
			"title":       e.Title,
			"description": e.Description,
			"starts_at":   e.StartsAt,
			"ends_at":     e.EndsAt,
			"updated_at":  e.UpdatedAt,
		}).
		Where(sq.Eq{"id": e.ID}).
		Suffix("RETURNING " + eventColumns)

	var row eventRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return event.Event{}, notFoundOr(err, event.ErrNotFound, "updating event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "events", id, event.ErrNotFound)
}
