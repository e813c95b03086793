package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lesson"
)

const lessonColumns = "id, subject_id, title, description, room, starts_at, ends_at, created_at, updated_at"

// lessonRow converts to lesson.Lesson: same fields, db tags.
type lessonRow struct {
	ID          int64     `db:"id"`
	SubjectID   int64     `db:"subject_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Room        string    `db:"room"`
	StartsAt    time.Time `db:"starts_at"`
	EndsAt      time.Time `db:"ends_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r lessonRow) toLesson() lesson.Lesson {
	l := lesson.Lesson(r)
	l.StartsAt = l.StartsAt.UTC()
	l.EndsAt = l.EndsAt.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return l
}

type lessonRepository struct {
	db *sqlx.DB
}

func NewLessonRepository(db *sqlx.DB) lesson.Repository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) Create(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	stmt := psql.Insert("lessons").
		Columns("subject_id", "title", "description", "room", "starts_at", "ends_at", "created_at", "updated_at").
		Values(l.SubjectID, l.Title, l.Description, l.Room, l.StartsAt, l.EndsAt, l.CreatedAt, l.UpdatedAt).
		Suffix("RETURNING " + lessonColumns)

	var row lessonRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return row.toLesson(), nil
}

func (repo *lessonRepository) Query(ctx context.Context, q core.ListQuery) ([]lesson.Lesson, error) {
	stmt, err := applyListQuery(psql.Select(lessonColumns).From("lessons"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []lessonRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]lesson.Lesson, len(rows))
	for i, r := range rows {
		lessons[i] = r.toLesson()
	}
	return lessons, nil
}

func (repo *lessonRepository) GetByID(ctx context.Context, id int64) (lesson.Lesson, error) {
	var row lessonRow
	if err := get(ctx, repo.db, &row, psql.Select(lessonColumns).From("lessons").Where(sq.Eq{"id": id})); err != nil {
		return lesson.Lesson{}, notFoundOr(err, lesson.ErrNotFound, "selecting lesson")
	}
	return row.toLesson(), nil
}

func (repo *lessonRepository) Update(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	stmt := psql.Update("lessons").
		SetMap(map[string]interface{}{
			"title":       l.Title,
			"description": l.Description,
			"room":        l.Room,
			"starts_at":   l.StartsAt,
			"ends_at":     l.EndsAt,
			"updated_at":  l.UpdatedAt,
		}).
		Where(sq.Eq{"id": l.ID}).
		Suffix("RETURNING " + lessonColumns)

	var row lessonRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return lesson.Lesson{}, notFoundOr(err, lesson.ErrNotFound, "updating lesson")
	}
	return row.toLesson(), nil
}

func (repo *lessonRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "lessons", id, lesson.ErrNotFound)
}
