// Package notification stores per-user messages and tracks whether they were read.
package notification

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	ErrNotFound = core.NewNotFoundError("notification not found")

	// QueryFields may be used in list queries.
	QueryFields = core.QueryFields{
		"id": core.IDField, "user_id": core.IDField, "message": core.TextField,
		"is_read": core.BoolField, "created_at": core.TimeField,
	}
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type (
	Repository interface {
		Create(ctx context.Context, n Notification) (Notification, error)
		Query(ctx context.Context, q core.ListQuery) ([]Notification, error)
		GetByID(ctx context.Context, id int64) (Notification, error)
		MarkRead(ctx context.Context, id int64) (Notification, error)
		// MarkAllRead returns the number of notifications marked as read.
		MarkAllRead(ctx context.Context, userID int64) (int64, error)
		CountUnread(ctx context.Context, userID int64) (int64, error)
		Delete(ctx context.Context, id int64) error
	}

	// Service manages the notifications of a user; a notification of another user is never found.
	Service interface {
		Notify(ctx context.Context, userID int64, message string) (Notification, error)
		Query(ctx context.Context, userID int64, q core.ListQuery) ([]Notification, error)
		UnreadCount(ctx context.Context, userID int64) (int64, error)
		MarkAsRead(ctx context.Context, userID, id int64) (Notification, error)
		MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
		Delete(ctx context.Context, userID, id int64) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Notify(ctx context.Context, userID int64, message string) (Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Notification{}, core.NewValidationError(nil, core.FieldError{Field: "message", Error: "this field is required"})
	}
	n, err := svc.repo.Create(ctx, Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return n, errors.Wrap(err, "creating notification")
}

func (svc *service) Query(ctx context.Context, userID int64, q core.ListQuery) ([]Notification, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	q = q.With(core.Eq("user_id", userID)).OrderedBy(
		core.DBOrdering{Field: "created_at"},
		core.DBOrdering{Field: "id"},
	)
	return svc.repo.Query(ctx, q)
}

func (svc *service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return svc.repo.CountUnread(ctx, userID)
}

func (svc *service) get(ctx context.Context, userID, id int64) (Notification, error) {
	n, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (svc *service) MarkAsRead(ctx context.Context, userID, id int64) (Notification, error) {
	n, err := svc.get(ctx, userID, id)
	if err != nil {
		return Notification{}, err
	}
	if n.IsRead {
		return n, nil
	}
	return svc.repo.MarkRead(ctx, id)
}

func (svc *service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return svc.repo.MarkAllRead(ctx, userID)
}

func (svc *service) Delete(ctx context.Context, userID, id int64) error {
	if _, err := svc.get(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.Delete(ctx, id)
}
