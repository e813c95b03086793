package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/task"
)

const taskColumns = "id, subject_id, lesson_id, title, description, due_at, created_at, updated_at"

type taskRow struct {
	ID          int64      `db:"id"`
	SubjectID   int64      `db:"subject_id"`
	LessonID    null.Int64 `db:"lesson_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	DueAt       null.Time  `db:"due_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r taskRow) toTask() task.Task {
	t := task.Task(r)
	t.DueAt = utcTime(t.DueAt)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t
}

type taskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) Create(ctx context.Context, t task.Task) (task.Task, error) {
	stmt := psql.Insert("tasks").
		Columns("subject_id", "lesson_id", "title", "description", "due_at", "created_at", "updated_at").
		Values(t.SubjectID, t.LessonID, t.Title, t.Description, t.DueAt, t.CreatedAt, t.UpdatedAt).
		Suffix("RETURNING " + taskColumns)

	var row taskRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return row.toTask(), nil
}

func (repo *taskRepository) Query(ctx context.Context, q core.ListQuery) ([]task.Task, error) {
	stmt, err := applyListQuery(psql.Select(taskColumns).From("tasks"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []taskRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.toTask()
	}
	return tasks, nil
}

func (repo *taskRepository) GetByID(ctx context.Context, id int64) (task.Task, error) {
	var row taskRow
	if err := get(ctx, repo.db, &row, psql.Select(taskColumns).From("tasks").Where(sq.Eq{"id": id})); err != nil {
		return task.Task{}, notFoundOr(err, task.ErrNotFound, "selecting task")
	}
	return row.toTask(), nil
}

func (repo *taskRepository) Update(ctx context.Context, t task.Task) (task.Task, error) {
	stmt := psql.Update("tasks").
		SetMap(map[string]interface{}{
			"lesson_id":   t.LessonID,
			"title":       t.Title,
			"description": t.Description,
			"due_at":      t.DueAt,
			"updated_at":  t.UpdatedAt,
		}).
		Where(sq.Eq{"id": t.ID}).
		Suffix("RETURNING " + taskColumns)

	var row taskRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return task.Task{}, notFoundOr(err, task.ErrNotFound, "updating task")
	}
	return row.toTask(), nil
}

func (repo *taskRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "tasks", id, task.ErrNotFound)
}
