package group

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("group not found")
	ErrNameExists     = errors.New("a group with this name already exists")
	ErrMemberNotFound = core.NewNotFoundError("user is not a member of this group")
)

type (
	Repository interface {
		// Create & Update return ErrNameExists if the name is taken.
		Create(ctx context.Context, g Group) (Group, error)
		Query(ctx context.Context, q core.ListQuery) ([]Group, error)
		GetByID(ctx context.Context, id int64) (Group, error)
		Update(ctx context.Context, g Group) (Group, error)
		Delete(ctx context.Context, id int64) error
		// LinkSubject is a no-op if the subject is already linked.
		LinkSubject(ctx context.Context, groupID, subjectID int64) error
		UnlinkSubject(ctx context.Context, groupID, subjectID int64) error
		SubjectIDs(ctx context.Context, groupID int64) ([]int64, error)
	}

	Service interface {
		Create(ctx context.Context, ng NewGroup) (Group, error)
		Query(ctx context.Context, q core.ListQuery) ([]Group, error)
		GetByID(ctx context.Context, id int64) (Group, error)
		Update(ctx context.Context, id int64, ug UpdateGroup) (Group, error)
		Delete(ctx context.Context, id int64) error
		Members(ctx context.Context, id int64, q core.ListQuery) ([]user.User, error)
		// Invite adds the user to the group, moving them out of their current group if any, and notifies them.
		Invite(ctx context.Context, id, userID int64) (user.User, error)
		RemoveMember(ctx context.Context, id, userID int64) error
		LinkSubject(ctx context.Context, id, subjectID int64) error
		UnlinkSubject(ctx context.Context, id, subjectID int64) error
		Subjects(ctx context.Context, id int64) ([]subject.Subject, error)
	}

	service struct {
		repo          Repository
		users         user.Service
		subjects      subject.Service
		notifications notification.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, subjects subject.Service, notifications notification.Service) Service {
	return &service{
		repo:          repo,
		users:         users,
		subjects:      subjects,
		notifications: notifications,
	}
}

func nameExists(err error) error {
	if errors.Cause(err) == ErrNameExists {
		return core.NewValidationError(err, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return err
}

func (svc *service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	now := time.Now().UTC()
	g, err := svc.repo.Create(ctx, Group{
		Name:        ng.Name,
		Description: ng.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return g, nameExists(err)
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]Group, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "name", Ascending: true}))
}

func (svc *service) GetByID(ctx context.Context, id int64) (Group, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int64, ug UpdateGroup) (Group, error) {
	g, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if ug.Name != nil {
		g.Name = *ug.Name
	}
	if ug.Description != nil {
		g.Description = *ug.Description
	}
	g.UpdatedAt = time.Now().UTC()
	g, err = svc.repo.Update(ctx, g)
	return g, nameExists(err)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}

func (svc *service) Members(ctx context.Context, id int64, q core.ListQuery) ([]user.User, error) {
	if _, err := svc.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return svc.users.Query(ctx, q.With(core.Eq("group_id", id)))
}

func (svc *service) Invite(ctx context.Context, id, userID int64) (user.User, error) {
	g, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	if usr.GroupID.Valid && usr.GroupID.Int64 == g.ID {
		return usr, nil
	}

	if err = svc.users.SetGroup(ctx, usr.ID, null.Int64From(g.ID)); err != nil {
		return user.User{}, errors.Wrap(err, "setting user group")
	}
	usr.GroupID = null.Int64From(g.ID)

	msg := fmt.Sprintf("You have been added to the group %q.", g.Name)
	if _, err = svc.notifications.Notify(ctx, usr.ID, msg); err != nil {
		return user.User{}, errors.Wrap(err, "notifying user")
	}
	return usr, nil
}

func (svc *service) RemoveMember(ctx context.Context, id, userID int64) error {
	if _, err := svc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !usr.GroupID.Valid || usr.GroupID.Int64 != id {
		return ErrMemberNotFound
	}
	return errors.Wrap(svc.users.SetGroup(ctx, usr.ID, null.Int64{}), "unsetting user group")
}

func (svc *service) LinkSubject(ctx context.Context, id, subjectID int64) error {
	if _, err := svc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if _, err := svc.subjects.GetByID(ctx, subjectID); err != nil {
		return err
	}
	return svc.repo.LinkSubject(ctx, id, subjectID)
}

func (svc *service) UnlinkSubject(ctx context.Context, id, subjectID int64) error {
	if _, err := svc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.UnlinkSubject(ctx, id, subjectID)
}

func (svc *service) Subjects(ctx context.Context, id int64) ([]subject.Subject, error) {
	if _, err := svc.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	ids, err := svc.repo.SubjectIDs(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "listing subject ids")
	}
	if len(ids) == 0 {
		return []subject.Subject{}, nil
	}
	return svc.subjects.Query(ctx, core.ListQuery{
		Where: []core.Condition{{Field: "id", Op: core.OpIn, Value: ids}},
	})
}
