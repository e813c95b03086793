package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chat"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) emailTaken(email string, excludedID int64) bool {
	_, taken := repo.db.users.find(func(u user.User) bool { return u.Email == email && u.ID != excludedID })
	return taken
}

func (repo *userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.emailTaken(usr.Email, 0) {
		return user.User{}, user.ErrEmailExists
	}
	return repo.db.users.insert(usr), nil
}

func (repo *userRepository) Query(ctx context.Context, q core.ListQuery) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.users.all(), q)
}

func (repo *userRepository) GetByID(ctx context.Context, id int64) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users.find(func(u user.User) bool { return u.Email == email }); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users.get(usr.ID)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	usr.OTPCode = orig.OTPCode
	usr.OTPExpiresAt = orig.OTPExpiresAt
	repo.db.users.put(usr)
	return usr, nil
}

func (repo *userRepository) Delete(ctx context.Context, ids ...int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		repo.db.deleteUser(id)
	}
	return nil
}

func (repo *userRepository) set(id int64, fn func(*user.User)) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if n := repo.db.users.update(func(u user.User) bool { return u.ID == id }, fn); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetOnline(ctx context.Context, id int64, online bool) error {
	return repo.set(id, func(u *user.User) { u.Online = online })
}

func (repo *userRepository) SetGroup(ctx context.Context, id int64, groupID null.Int64) error {
	return repo.set(id, func(u *user.User) {
		u.GroupID = groupID
		u.UpdatedAt = time.Now().UTC()
	})
}

func (repo *userRepository) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return repo.set(id, func(u *user.User) {
		u.OTPCode = code
		u.OTPExpiresAt = expiresAt.UTC()
	})
}

func (repo *userRepository) ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n := repo.db.users.update(
		func(u user.User) bool {
			return u.ID == id && u.OTPCode != "" && u.OTPCode == code && now.Before(u.OTPExpiresAt)
		},
		func(u *user.User) {
			u.OTPCode = ""
			u.OTPExpiresAt = time.Time{}
		},
	)
	return n == 1, nil
}

// deleteUser removes the user and cascades to its grades, notifications and chats.
// The caller must hold the write lock.
func (db *DB) deleteUser(id int64) {
	if _, ok := db.users.get(id); !ok {
		return
	}
	db.users.delete(id)
	db.grades.deleteWhere(func(g grade.TaskGrade) bool { return g.UserID == id })
	db.notifications.deleteWhere(func(n notification.Notification) bool { return n.UserID == id })
	for _, chatID := range db.chats.deleteWhere(func(c chat.Chat) bool { return c.HasParticipant(id) }) {
		db.deleteMessages(chatID)
	}
	db.subjects.update(
		func(s subject.Subject) bool { return s.TeacherID.Valid && s.TeacherID.Int64 == id },
		func(s *subject.Subject) { s.TeacherID = null.Int64{} },
	)
}
