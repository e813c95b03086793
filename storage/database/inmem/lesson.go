package inmemdb

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/task"
)

type lessonRepository struct {
	db *DB
}

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) Create(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.db.lessons.insert(l), nil
}

func (repo *lessonRepository) Query(ctx context.Context, q core.ListQuery) ([]lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.lessons.all(), q)
}

func (repo *lessonRepository) GetByID(ctx context.Context, id int64) (lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.lessons.get(id); ok {
		return l, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) Update(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.lessons.put(l) {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return l, nil
}

// Delete detaches the lesson tasks.
func (repo *lessonRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons.get(id); !ok {
		return lesson.ErrNotFound
	}
	repo.db.lessons.delete(id)
	repo.db.tasks.update(
		func(t task.Task) bool { return t.LessonID.Valid && t.LessonID.Int64 == id },
		func(t *task.Task) { t.LessonID = null.Int64{} },
	)
	return nil
}
