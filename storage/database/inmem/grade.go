package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/grade"
)

type gradeRepository struct {
	db *DB
}

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) Create(ctx context.Context, g grade.TaskGrade) (grade.TaskGrade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, exists := repo.db.grades.find(func(tg grade.TaskGrade) bool {
		return tg.UserID == g.UserID && tg.TaskID == g.TaskID
	}); exists {
		return grade.TaskGrade{}, grade.ErrGradeExists
	}
	return repo.db.grades.insert(g), nil
}

func (repo *gradeRepository) Query(ctx context.Context, q core.ListQuery) ([]grade.TaskGrade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.grades.all(), q)
}

func (repo *gradeRepository) GetByID(ctx context.Context, id int64) (grade.TaskGrade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.grades.get(id); ok {
		return g, nil
	}
	return grade.TaskGrade{}, grade.ErrNotFound
}

func (repo *gradeRepository) Update(ctx context.Context, g grade.TaskGrade) (grade.TaskGrade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.grades.put(g) {
		return grade.TaskGrade{}, grade.ErrNotFound
	}
	return g, nil
}

func (repo *gradeRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades.get(id); !ok {
		return grade.ErrNotFound
	}
	repo.db.grades.delete(id)
	return nil
}

func (repo *gradeRepository) ListScores(ctx context.Context, userIDs ...int64) ([]grade.Score, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	scores := make([]grade.Score, 0)
	for _, g := range repo.db.grades.filter(func(g grade.TaskGrade) bool { return contains(userIDs, g.UserID) }) {
		t, ok := repo.db.tasks.get(g.TaskID)
		if !ok {
			continue
		}
		sub, ok := repo.db.subjects.get(t.SubjectID)
		if !ok {
			continue
		}
		scores = append(scores, grade.Score{
			UserID:      g.UserID,
			SubjectID:   sub.ID,
			SubjectName: sub.Name,
			Score:       g.Score,
		})
	}
	return scores, nil
}
