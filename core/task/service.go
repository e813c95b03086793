package task

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/subject"
)

var ErrNotFound = core.NewNotFoundError("task not found")

type (
	Repository interface {
		Create(ctx context.Context, t Task) (Task, error)
		Query(ctx context.Context, q core.ListQuery) ([]Task, error)
		GetByID(ctx context.Context, id int64) (Task, error)
		Update(ctx context.Context, t Task) (Task, error)
		Delete(ctx context.Context, id int64) error
	}

	Service interface {
		Create(ctx context.Context, nt NewTask) (Task, error)
		Query(ctx context.Context, q core.ListQuery) ([]Task, error)
		GetByID(ctx context.Context, id int64) (Task, error)
		Update(ctx context.Context, id int64, ut UpdateTask) (Task, error)
		Delete(ctx context.Context, id int64) error
	}

	service struct {
		repo     Repository
		subjects subject.Service
		lessons  lesson.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subjects subject.Service, lessons lesson.Service) Service {
	return &service{repo: repo, subjects: subjects, lessons: lessons}
}

// checkLesson checks that the lesson, if any, belongs to the task's subject.
func (svc *service) checkLesson(ctx context.Context, subjectID int64, lessonID null.Int64) error {
	if !lessonID.Valid {
		return nil
	}
	l, err := svc.lessons.GetByID(ctx, lessonID.Int64)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "lesson_id", Error: "lesson not found"})
		}
		return errors.Wrap(err, "finding lesson")
	}
	if l.SubjectID != subjectID {
		return core.NewValidationError(nil, core.FieldError{Field: "lesson_id", Error: "lesson does not belong to this subject"})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nt NewTask) (Task, error) {
	if _, err := svc.subjects.GetByID(ctx, nt.SubjectID); err != nil {
		return Task{}, errors.Wrap(err, "finding subject")
	}
	now := time.Now().UTC()
	t := Task{
		SubjectID:   nt.SubjectID,
		LessonID:    null.Int64FromPtr(nt.LessonID),
		Title:       nt.Title,
		Description: nt.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nt.DueAt != nil {
		t.DueAt = null.TimeFrom(nt.DueAt.UTC())
	}
	if err := svc.checkLesson(ctx, t.SubjectID, t.LessonID); err != nil {
		return Task{}, err
	}
	return svc.repo.Create(ctx, t)
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]Task, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "id", Ascending: true}))
}

func (svc *service) GetByID(ctx context.Context, id int64) (Task, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int64, ut UpdateTask) (Task, error) {
	t, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	t = ut.apply(t)
	if ut.LessonID != nil {
		if err = svc.checkLesson(ctx, t.SubjectID, t.LessonID); err != nil {
			return Task{}, err
		}
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, t)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}
