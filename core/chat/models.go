package chat

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

var (
	// QueryFields may be used in chat list queries.
	QueryFields = core.QueryFields{"id": core.IDField, "user1_id": core.IDField, "user2_id": core.IDField, "created_at": core.TimeField}

	// MessageQueryFields may be used in message list queries.
	MessageQueryFields = core.QueryFields{"id": core.IDField, "sender_id": core.IDField, "body": core.TextField, "created_at": core.TimeField}
)

// Chat is a conversation between two distinct users, stored with User1ID < User2ID.
type Chat struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (c Chat) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewChat identifies the user to open a chat with.
type NewChat struct {
	UserID int64 `json:"user_id" validate:"required"`
}

type NewMessage struct {
	Body string `json:"body" validate:"required,max=4000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

// pair orders the two user ids the way chats are stored.
func pair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
