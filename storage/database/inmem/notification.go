package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) Create(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.db.notifications.insert(n), nil
}

func (repo *notificationRepository) Query(ctx context.Context, q core.ListQuery) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.notifications.all(), q)
}

func (repo *notificationRepository) GetByID(ctx context.Context, id int64) (notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if n, ok := repo.db.notifications.get(id); ok {
		return n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) MarkRead(ctx context.Context, id int64) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n, ok := repo.db.notifications.get(id)
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.IsRead = true
	repo.db.notifications.put(n)
	return n, nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	return repo.db.notifications.update(
		func(n notification.Notification) bool { return n.UserID == userID && !n.IsRead },
		func(n *notification.Notification) { n.IsRead = true },
	), nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	unread := repo.db.notifications.filter(func(n notification.Notification) bool { return n.UserID == userID && !n.IsRead })
	return int64(len(unread)), nil
}

func (repo *notificationRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.notifications.get(id); !ok {
		return notification.ErrNotFound
	}
	repo.db.notifications.delete(id)
	return nil
}
