package grade

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/core/task"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("grade not found")
	ErrGradeExists = errors.New("this user already has a grade for this task")
)

type (
	Repository interface {
		// Create returns ErrGradeExists if the (user, task) pair is already graded.
		Create(ctx context.Context, g TaskGrade) (TaskGrade, error)
		Query(ctx context.Context, q core.ListQuery) ([]TaskGrade, error)
		GetByID(ctx context.Context, id int64) (TaskGrade, error)
		Update(ctx context.Context, g TaskGrade) (TaskGrade, error)
		Delete(ctx context.Context, id int64) error
		// ListScores returns the scores of the given users along with the subjects of the graded tasks.
		ListScores(ctx context.Context, userIDs ...int64) ([]Score, error)
	}

	Service interface {
		Create(ctx context.Context, ng NewTaskGrade) (TaskGrade, error)
		Query(ctx context.Context, q core.ListQuery) ([]TaskGrade, error)
		GetByID(ctx context.Context, id int64) (TaskGrade, error)
		Update(ctx context.Context, id int64, ug UpdateTaskGrade) (TaskGrade, error)
		Delete(ctx context.Context, id int64) error
	}

	service struct {
		repo          Repository
		users         user.Service
		tasks         task.Service
		notifications notification.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, tasks task.Service, notifications notification.Service) Service {
	return &service{
		repo:          repo,
		users:         users,
		tasks:         tasks,
		notifications: notifications,
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func (svc *service) Create(ctx context.Context, ng NewTaskGrade) (TaskGrade, error) {
	usr, err := svc.users.GetByID(ctx, ng.UserID)
	if err != nil {
		return TaskGrade{}, err
	}
	if !usr.IsStudent() {
		return TaskGrade{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "user is not a student"})
	}
	t, err := svc.tasks.GetByID(ctx, ng.TaskID)
	if err != nil {
		return TaskGrade{}, err
	}

	now := time.Now().UTC()
	g, err := svc.repo.Create(ctx, TaskGrade{
		UserID:    usr.ID,
		TaskID:    t.ID,
		Score:     *ng.Score,
		Comment:   ng.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrGradeExists {
			return TaskGrade{}, core.NewValidationError(err, core.FieldError{Field: "task_id", Error: ErrGradeExists.Error()})
		}
		return TaskGrade{}, err
	}

	msg := fmt.Sprintf("You received a grade of %s for the task %q.", formatScore(g.Score), t.Title)
	if _, err = svc.notifications.Notify(ctx, usr.ID, msg); err != nil {
		return TaskGrade{}, errors.Wrap(err, "notifying student")
	}
	return g, nil
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]TaskGrade, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "id", Ascending: true}))
}

func (svc *service) GetByID(ctx context.Context, id int64) (TaskGrade, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int64, ug UpdateTaskGrade) (TaskGrade, error) {
	g, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return TaskGrade{}, err
	}
	scoreChanged := ug.Score != nil && *ug.Score != g.Score
	if ug.Score != nil {
		g.Score = *ug.Score
	}
	if ug.Comment != nil {
		g.Comment = *ug.Comment
	}
	g.UpdatedAt = time.Now().UTC()
	if g, err = svc.repo.Update(ctx, g); err != nil {
		return TaskGrade{}, err
	}

	if scoreChanged {
		title := "#" + strconv.FormatInt(g.TaskID, 10)
		if t, err := svc.tasks.GetByID(ctx, g.TaskID); err == nil {
			title = strconv.Quote(t.Title)
		}
		msg := fmt.Sprintf("Your grade for the task %s was updated to %s.", title, formatScore(g.Score))
		if _, err = svc.notifications.Notify(ctx, g.UserID, msg); err != nil {
			return TaskGrade{}, errors.Wrap(err, "notifying student")
		}
	}
	return g, nil
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}
