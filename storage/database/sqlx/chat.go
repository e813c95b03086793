package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chat"
)

const (
	chatColumns    = "id, user1_id, user2_id, created_at"
	messageColumns = "id, chat_id, sender_id, body, created_at"
)

type chatRow struct {
	ID        int64     `db:"id"`
	User1ID   int64     `db:"user1_id"`
	User2ID   int64     `db:"user2_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r chatRow) toChat() chat.Chat {
	c := chat.Chat(r)
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}

type messageRow struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	SenderID  int64     `db:"sender_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

func (r messageRow) toMessage() chat.Message {
	m := chat.Message(r)
	m.CreatedAt = m.CreatedAt.UTC()
	return m
}

type chatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) chat.Repository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) Create(ctx context.Context, c chat.Chat) (chat.Chat, error) {
	stmt := psql.Insert("chats").
		Columns("user1_id", "user2_id", "created_at").
		Values(c.User1ID, c.User2ID, c.CreatedAt).
		Suffix("RETURNING " + chatColumns)

	var row chatRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return chat.Chat{}, chat.ErrChatExists
		}
		return chat.Chat{}, errors.Wrap(err, "inserting chat")
	}
	return row.toChat(), nil
}

func (repo *chatRepository) getBy(ctx context.Context, cond sq.Eq) (chat.Chat, error) {
	var row chatRow
	if err := get(ctx, repo.db, &row, psql.Select(chatColumns).From("chats").Where(cond)); err != nil {
		return chat.Chat{}, notFoundOr(err, chat.ErrNotFound, "selecting chat")
	}
	return row.toChat(), nil
}

func (repo *chatRepository) GetByID(ctx context.Context, id int64) (chat.Chat, error) {
	return repo.getBy(ctx, sq.Eq{"id": id})
}

func (repo *chatRepository) GetByPair(ctx context.Context, user1ID, user2ID int64) (chat.Chat, error) {
	return repo.getBy(ctx, sq.Eq{"user1_id": user1ID, "user2_id": user2ID})
}

func (repo *chatRepository) query(ctx context.Context, stmt sq.SelectBuilder, q core.ListQuery) ([]chat.Chat, error) {
	stmt, err := applyListQuery(stmt, "", q)
	if err != nil {
		return nil, err
	}
	var rows []chatRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}
	chats := make([]chat.Chat, len(rows))
	for i, r := range rows {
		chats[i] = r.toChat()
	}
	return chats, nil
}

func (repo *chatRepository) Query(ctx context.Context, q core.ListQuery) ([]chat.Chat, error) {
	return repo.query(ctx, psql.Select(chatColumns).From("chats"), q)
}

func (repo *chatRepository) QueryForUser(ctx context.Context, userID int64, q core.ListQuery) ([]chat.Chat, error) {
	stmt := psql.Select(chatColumns).From("chats").Where(sq.Or{sq.Eq{"user1_id": userID}, sq.Eq{"user2_id": userID}})
	return repo.query(ctx, stmt, q)
}

func (repo *chatRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "chats", id, chat.ErrNotFound)
}

func (repo *chatRepository) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	stmt := psql.Insert("messages").
		Columns("chat_id", "sender_id", "body", "created_at").
		Values(m.ChatID, m.SenderID, m.Body, m.CreatedAt).
		Suffix("RETURNING " + messageColumns)

	var row messageRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return row.toMessage(), nil
}

func (repo *chatRepository) QueryMessages(ctx context.Context, chatID int64, q core.ListQuery) ([]chat.Message, error) {
	stmt, err := applyListQuery(psql.Select(messageColumns).From("messages").Where(sq.Eq{"chat_id": chatID}), "", q)
	if err != nil {
		return nil, err
	}
	var rows []messageRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]chat.Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.toMessage()
	}
	return msgs, nil
}
