package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/subject"
)

const subjectColumns = "id, name, description, teacher_id, created_at, updated_at"

type subjectRow struct {
	ID          int64      `db:"id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	TeacherID   null.Int64 `db:"teacher_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r subjectRow) toSubject() subject.Subject {
	return subject.Subject{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type subjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) Create(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	stmt := psql.Insert("subjects").
		Columns("name", "description", "teacher_id", "created_at", "updated_at").
		Values(sub.Name, sub.Description, sub.TeacherID, sub.CreatedAt, sub.UpdatedAt).
		Suffix("RETURNING " + subjectColumns)

	var row subjectRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, subject.ErrNameExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return row.toSubject(), nil
}

func (repo *subjectRepository) Query(ctx context.Context, q core.ListQuery) ([]subject.Subject, error) {
	stmt, err := applyListQuery(psql.Select(subjectColumns).From("subjects"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []subjectRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, len(rows))
	for i, r := range rows {
		subjects[i] = r.toSubject()
	}
	return subjects, nil
}

func (repo *subjectRepository) GetByID(ctx context.Context, id int64) (subject.Subject, error) {
	var row subjectRow
	if err := get(ctx, repo.db, &row, psql.Select(subjectColumns).From("subjects").Where(sq.Eq{"id": id})); err != nil {
		return subject.Subject{}, notFoundOr(err, subject.ErrNotFound, "selecting subject")
	}
	return row.toSubject(), nil
}

func (repo *subjectRepository) Update(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	stmt := psql.Update("subjects").
		Set("name", sub.Name).
		Set("description", sub.Description).
		Set("teacher_id", sub.TeacherID).
		Set("updated_at", sub.UpdatedAt).
		Where(sq.Eq{"id": sub.ID}).
		Suffix("RETURNING " + subjectColumns)

	var row subjectRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, subject.ErrNameExists
		}
		return subject.Subject{}, notFoundOr(err, subject.ErrNotFound, "updating subject")
	}
	return row.toSubject(), nil
}

func (repo *subjectRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "subjects", id, subject.ErrNotFound)
}
