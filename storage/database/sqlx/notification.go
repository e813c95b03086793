package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
)

const notificationColumns = "id, user_id, message, is_read, created_at"

type notificationRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

func (r notificationRow) toNotification() notification.Notification {
	n := notification.Notification(r)
	n.CreatedAt = n.CreatedAt.UTC()
	return n
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) Create(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	stmt := psql.Insert("notifications").
		Columns("user_id", "message", "is_read", "created_at").
		Values(n.UserID, n.Message, n.IsRead, n.CreatedAt).
		Suffix("RETURNING " + notificationColumns)

	var row notificationRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) Query(ctx context.Context, q core.ListQuery) ([]notification.Notification, error) {
	stmt, err := applyListQuery(psql.Select(notificationColumns).From("notifications"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []notificationRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	res := make([]notification.Notification, len(rows))
	for i, r := range rows {
		res[i] = r.toNotification()
	}
	return res, nil
}

func (repo *notificationRepository) GetByID(ctx context.Context, id int64) (notification.Notification, error) {
	var row notificationRow
	stmt := psql.Select(notificationColumns).From("notifications").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return notification.Notification{}, notFoundOr(err, notification.ErrNotFound, "selecting notification")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, id int64) (notification.Notification, error) {
	stmt := psql.Update("notifications").
		Set("is_read", true).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + notificationColumns)

	var row notificationRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return notification.Notification{}, notFoundOr(err, notification.ErrNotFound, "marking notification as read")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := exec(ctx, repo.db, psql.Update("notifications").Set("is_read", true).Where(sq.Eq{"user_id": userID, "is_read": false}))
	return n, errors.Wrap(err, "marking notifications as read")
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	stmt := psql.Select("COUNT(*)").From("notifications").Where(sq.Eq{"user_id": userID, "is_read": false})
	if err := get(ctx, repo.db, &n, stmt); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return n, nil
}

func (repo *notificationRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "notifications", id, notification.ErrNotFound)
}
