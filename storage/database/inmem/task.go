package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/task"
)

type taskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) Create(ctx context.Context, t task.Task) (task.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.db.tasks.insert(t), nil
}

func (repo *taskRepository) Query(ctx context.Context, q core.ListQuery) ([]task.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.tasks.all(), q)
}

func (repo *taskRepository) GetByID(ctx context.Context, id int64) (task.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.tasks.get(id); ok {
		return t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) Update(ctx context.Context, t task.Task) (task.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.tasks.put(t) {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (repo *taskRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tasks.get(id); !ok {
		return task.ErrNotFound
	}
	repo.db.tasks.delete(id)
	repo.db.grades.deleteWhere(func(g grade.TaskGrade) bool { return g.TaskID == id })
	return nil
}
