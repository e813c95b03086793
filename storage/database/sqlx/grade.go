package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/grade"
)

const gradeColumns = "id, user_id, task_id, score, comment, created_at, updated_at"

type gradeRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	TaskID    int64     `db:"task_id"`
	Score     float64   `db:"score"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r gradeRow) toGrade() grade.TaskGrade {
	g := grade.TaskGrade(r)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g
}

type scoreRow struct {
	UserID      int64   `db:"user_id"`
	SubjectID   int64   `db:"subject_id"`
	SubjectName string  `db:"subject_name"`
	Score       float64 `db:"score"`
}

type gradeRepository struct {
	db *sqlx.DB
}

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) Create(ctx context.Context, g grade.TaskGrade) (grade.TaskGrade, error) {
	stmt := psql.Insert("task_grades").
		Columns("user_id", "task_id", "score", "comment", "created_at", "updated_at").
		Values(g.UserID, g.TaskID, g.Score, g.Comment, g.CreatedAt, g.UpdatedAt).
		Suffix("RETURNING " + gradeColumns)

	var row gradeRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return grade.TaskGrade{}, grade.ErrGradeExists
		}
		return grade.TaskGrade{}, errors.Wrap(err, "inserting grade")
	}
	return row.toGrade(), nil
}

func (repo *gradeRepository) Query(ctx context.Context, q core.ListQuery) ([]grade.TaskGrade, error) {
	stmt, err := applyListQuery(psql.Select(gradeColumns).From("task_grades"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []gradeRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.TaskGrade, len(rows))
	for i, r := range rows {
		grades[i] = r.toGrade()
	}
	return grades, nil
}

func (repo *gradeRepository) GetByID(ctx context.Context, id int64) (grade.TaskGrade, error) {
	var row gradeRow
	if err := get(ctx, repo.db, &row, psql.Select(gradeColumns).From("task_grades").Where(sq.Eq{"id": id})); err != nil {
		return grade.TaskGrade{}, notFoundOr(err, grade.ErrNotFound, "selecting grade")
	}
	return row.toGrade(), nil
}

func (repo *gradeRepository) Update(ctx context.Context, g grade.TaskGrade) (grade.TaskGrade, error) {
	stmt := psql.Update("task_grades").
		Set("score", g.Score).
		Set("comment", g.Comment).
		Set("updated_at", g.UpdatedAt).
		Where(sq.Eq{"id": g.ID}).
		Suffix("RETURNING " + gradeColumns)

	var row gradeRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return grade.TaskGrade{}, notFoundOr(err, grade.ErrNotFound, "updating grade")
	}
	return row.toGrade(), nil
}

func (repo *gradeRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "task_grades", id, grade.ErrNotFound)
}

func (repo *gradeRepository) ListScores(ctx context.Context, userIDs ...int64) ([]grade.Score, error) {
	scores := make([]grade.Score, 0)
	if len(userIDs) == 0 {
		return scores, nil
	}

	stmt := psql.Select("g.user_id", "s.id AS subject_id", "s.name AS subject_name", "g.score").
		From("task_grades g").
		Join("tasks t ON t.id = g.task_id").
		Join("subjects s ON s.id = t.subject_id").
		Where(sq.Eq{"g.user_id": userIDs}).
		OrderBy("g.user_id", "s.id", "g.id")

	var rows []scoreRow
	if err := selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "selecting scores")
	}
	for _, r := range rows {
		scores = append(scores, grade.Score(r))
	}
	return scores, nil
}
