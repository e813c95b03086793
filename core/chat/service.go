package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("chat not found")
	ErrChatExists = errors.New("a chat between these users already exists")

	errSelfChat       = core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "cannot open a chat with yourself"})
	errNotParticipant = core.NewPermissionError("only the chat participants may send messages")
)

type (
	Repository interface {
		// Create returns ErrChatExists if the pair already has a chat.
		Create(ctx context.Context, c Chat) (Chat, error)
		GetByID(ctx context.Context, id int64) (Chat, error)
		GetByPair(ctx context.Context, user1ID, user2ID int64) (Chat, error)
		Query(ctx context.Context, q core.ListQuery) ([]Chat, error)
		// QueryForUser lists the chats the user participates in.
		QueryForUser(ctx context.Context, userID int64, q core.ListQuery) ([]Chat, error)
		Delete(ctx context.Context, id int64) error
		CreateMessage(ctx context.Context, m Message) (Message, error)
		QueryMessages(ctx context.Context, chatID int64, q core.ListQuery) ([]Message, error)
	}

	Service interface {
		// Create opens a chat between the actor and another user. An existing chat for the pair is returned as is
		// and `created` is false.
		Create(ctx context.Context, actor user.User, otherID int64) (c Chat, created bool, err error)
		QueryAll(ctx context.Context, q core.ListQuery) ([]Chat, error)
		QueryForUser(ctx context.Context, userID int64, q core.ListQuery) ([]Chat, error)
		// Get returns the chat if the actor participates in it or is an admin.
		Get(ctx context.Context, actor user.User, id int64) (Chat, error)
		Delete(ctx context.Context, actor user.User, id int64) error
		SendMessage(ctx context.Context, actor user.User, chatID int64, nm NewMessage) (Message, error)
		Messages(ctx context.Context, actor user.User, chatID int64, q core.ListQuery) ([]Message, error)
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

func (svc *service) Create(ctx context.Context, actor user.User, otherID int64) (Chat, bool, error) {
	if actor.ID == otherID {
		return Chat{}, false, errSelfChat
	}
	if _, err := svc.users.GetByID(ctx, otherID); err != nil {
		return Chat{}, false, err
	}

	u1, u2 := pair(actor.ID, otherID)
	c, err := svc.repo.GetByPair(ctx, u1, u2)
	if err == nil {
		return c, false, nil
	} else if !core.IsNotFound(err) {
		return Chat{}, false, errors.Wrap(err, "finding chat by pair")
	}

	c, err = svc.repo.Create(ctx, Chat{User1ID: u1, User2ID: u2, CreatedAt: time.Now().UTC()})
	if errors.Cause(err) == ErrChatExists { // created concurrently
		c, err = svc.repo.GetByPair(ctx, u1, u2)
		return c, false, errors.Wrap(err, "finding chat by pair")
	}
	if err != nil {
		return Chat{}, false, errors.Wrap(err, "creating chat")
	}
	return c, true, nil
}

func (svc *service) QueryAll(ctx context.Context, q core.ListQuery) ([]Chat, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "id", Ascending: true}))
}

func (svc *service) QueryForUser(ctx context.Context, userID int64, q core.ListQuery) ([]Chat, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.QueryForUser(ctx, userID, q.OrderedBy(core.DBOrdering{Field: "id", Ascending: true}))
}

func (svc *service) Get(ctx context.Context, actor user.User, id int64) (Chat, error) {
	c, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Chat{}, err
	}
	if !c.HasParticipant(actor.ID) && !actor.IsAdmin() {
		return Chat{}, ErrNotFound
	}
	return c, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, id int64) error {
	c, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return svc.repo.Delete(ctx, c.ID)
}

func (svc *service) SendMessage(ctx context.Context, actor user.User, chatID int64, nm NewMessage) (Message, error) {
	c, err := svc.Get(ctx, actor, chatID)
	if err != nil {
		return Message{}, err
	}
	if !c.HasParticipant(actor.ID) {
		return Message{}, errNotParticipant
	}
	return svc.repo.CreateMessage(ctx, Message{
		ChatID:    c.ID,
		SenderID:  actor.ID,
		Body:      nm.Body,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) Messages(ctx context.Context, actor user.User, chatID int64, q core.ListQuery) ([]Message, error) {
	if err := q.Validate(MessageQueryFields); err != nil {
		return nil, err
	}
	c, err := svc.Get(ctx, actor, chatID)
	if err != nil {
		return nil, err
	}
	q = q.OrderedBy(
		core.DBOrdering{Field: "created_at", Ascending: true},
		core.DBOrdering{Field: "id", Ascending: true},
	)
	return svc.repo.QueryMessages(ctx, c.ID, q)
}
