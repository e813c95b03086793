package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chat"
)

type chatRepository struct {
	db *DB
}

func NewChatRepository(db *DB) chat.Repository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) Create(ctx context.Context, c chat.Chat) (chat.Chat, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, exists := repo.db.chats.find(func(ch chat.Chat) bool {
		return ch.User1ID == c.User1ID && ch.User2ID == c.User2ID
	}); exists {
		return chat.Chat{}, chat.ErrChatExists
	}
	return repo.db.chats.insert(c), nil
}

func (repo *chatRepository) GetByID(ctx context.Context, id int64) (chat.Chat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.chats.get(id); ok {
		return c, nil
	}
	return chat.Chat{}, chat.ErrNotFound
}

func (repo *chatRepository) GetByPair(ctx context.Context, user1ID, user2ID int64) (chat.Chat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.chats.find(func(c chat.Chat) bool { return c.User1ID == user1ID && c.User2ID == user2ID }); ok {
		return c, nil
	}
	return chat.Chat{}, chat.ErrNotFound
}

func (repo *chatRepository) Query(ctx context.Context, q core.ListQuery) ([]chat.Chat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.chats.all(), q)
}

func (repo *chatRepository) QueryForUser(ctx context.Context, userID int64, q core.ListQuery) ([]chat.Chat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.chats.filter(func(c chat.Chat) bool { return c.HasParticipant(userID) }), q)
}

func (repo *chatRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.chats.get(id); !ok {
		return chat.ErrNotFound
	}
	repo.db.chats.delete(id)
	repo.db.deleteMessages(id)
	return nil
}

func (repo *chatRepository) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.chats.get(m.ChatID); !ok {
		return chat.Message{}, chat.ErrNotFound
	}
	return repo.db.messages.insert(m), nil
}

func (repo *chatRepository) QueryMessages(ctx context.Context, chatID int64, q core.ListQuery) ([]chat.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.messages.filter(func(m chat.Message) bool { return m.ChatID == chatID }), q)
}

// deleteMessages must be called with the write lock held.
func (db *DB) deleteMessages(chatID int64) {
	db.messages.deleteWhere(func(m chat.Message) bool { return m.ChatID == chatID })
}
