package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("subject not found")
	ErrNameExists = errors.New("a subject with this name already exists")
)

type (
	Repository interface {
		// Create & Update return ErrNameExists if the name is taken.
		Create(ctx context.Context, sub Subject) (Subject, error)
		Query(ctx context.Context, q core.ListQuery) ([]Subject, error)
		GetByID(ctx context.Context, id int64) (Subject, error)
		Update(ctx context.Context, sub Subject) (Subject, error)
		Delete(ctx context.Context, id int64) error
	}

	Service interface {
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Query(ctx context.Context, q core.ListQuery) ([]Subject, error)
		GetByID(ctx context.Context, id int64) (Subject, error)
		Update(ctx context.Context, id int64, us UpdateSubject) (Subject, error)
		Delete(ctx context.Context, id int64) error
	}

	service struct {
		repo  Repository
		users user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service) Service {
	return &service{repo: repo, users: users}
}

func nameExists(err error) error {
	if errors.Cause(err) == ErrNameExists {
		return core.NewValidationError(err, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return err
}

// checkTeacher checks that the user exists and holds the teacher role.
func (svc *service) checkTeacher(ctx context.Context, teacherID null.Int64) error {
	if !teacherID.Valid {
		return nil
	}
	usr, err := svc.users.GetByID(ctx, teacherID.Int64)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: "user not found"})
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		Name:        ns.Name,
		Description: ns.Description,
		TeacherID:   null.Int64FromPtr(ns.TeacherID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.checkTeacher(ctx, sub.TeacherID); err != nil {
		return Subject{}, err
	}
	sub, err := svc.repo.Create(ctx, sub)
	return sub, nameExists(err)
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]Subject, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "name", Ascending: true}))
}

func (svc *service) GetByID(ctx context.Context, id int64) (Subject, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int64, us UpdateSubject) (Subject, error) {
	sub, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	sub = us.apply(sub)
	if us.TeacherID != nil {
		if err = svc.checkTeacher(ctx, sub.TeacherID); err != nil {
			return Subject{}, err
		}
	}
	sub.UpdatedAt = time.Now().UTC()
	sub, err = svc.repo.Update(ctx, sub)
	return sub, nameExists(err)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}
