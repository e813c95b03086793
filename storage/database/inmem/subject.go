package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/task"
)

type subjectRepository struct {
	db *DB
}

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) nameTaken(name string, excludedID int64) bool {
	_, taken := repo.db.subjects.find(func(s subject.Subject) bool { return s.Name == name && s.ID != excludedID })
	return taken
}

func (repo *subjectRepository) Create(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.nameTaken(sub.Name, 0) {
		return subject.Subject{}, subject.ErrNameExists
	}
	return repo.db.subjects.insert(sub), nil
}

func (repo *subjectRepository) Query(ctx context.Context, q core.ListQuery) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.subjects.all(), q)
}

func (repo *subjectRepository) GetByID(ctx context.Context, id int64) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.subjects.get(id); ok {
		return sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) Update(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects.get(sub.ID); !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	if repo.nameTaken(sub.Name, sub.ID) {
		return subject.Subject{}, subject.ErrNameExists
	}
	repo.db.subjects.put(sub)
	return sub, nil
}

// Delete cascades to the subject lessons, tasks (and their grades) and group links.
func (repo *subjectRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects.get(id); !ok {
		return subject.ErrNotFound
	}
	repo.db.subjects.delete(id)
	repo.db.lessons.deleteWhere(func(l lesson.Lesson) bool { return l.SubjectID == id })
	taskIDs := repo.db.tasks.deleteWhere(func(t task.Task) bool { return t.SubjectID == id })
	repo.db.grades.deleteWhere(func(g grade.TaskGrade) bool { return contains(taskIDs, g.TaskID) })
	for link := range repo.db.groupSubjects {
		if link.subjectID == id {
			delete(repo.db.groupSubjects, link)
		}
	}
	return nil
}
