package tests

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/chat"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/core/user"
)

func Test_chatApi(t *testing.T) {
	reset(t)

	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	king := createUser(t, "King", "king@test.cd", user.RoleStudent)
	ace := createUser(t, "Ace", "ace@test.cd", user.RoleStudent)
	heroToken, kingToken, aceToken := getToken(t, hero), getToken(t, king), getToken(t, ace)

	runTests(t, []httpTest{
		{
			name: "with yourself", method: http.MethodPost, path: "/v1/chats", token: heroToken, body: marchallObj(t, chat.NewChat{UserID: hero.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": "cannot open a chat with yourself"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/chats", token: heroToken, body: marchallObj(t, chat.NewChat{UserID: 99}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{name: "user required", method: http.MethodPost, path: "/v1/chats", token: heroToken, wantCode: http.StatusBadRequest},
	})

	var heroKing chat.Chat
	t.Run("created once per pair", func(t *testing.T) {
		rec := do(http.MethodPost, "/v1/chats", kingToken, marchallObj(t, chat.NewChat{UserID: hero.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &heroKing)
		assert.Equal(t, hero.ID, heroKing.User1ID)
		assert.Equal(t, king.ID, heroKing.User2ID)

		rec = do(http.MethodPost, "/v1/chats", heroToken, marchallObj(t, chat.NewChat{UserID: king.ID}))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, heroKing)}, rec)
	})

	chatPath := fmt.Sprintf("/v1/chats/%d", heroKing.ID)
	msgsPath := chatPath + "/messages"

	t.Run("messages", func(t *testing.T) {
		for i, tt := range []struct {
			token, body string
		}{{heroToken, "hi"}, {kingToken, "  hello  "}, {heroToken, "how are you?"}} {
			rec := do(http.MethodPost, msgsPath, tt.token, marchallObj(t, chat.NewMessage{Body: tt.body}))
			require.Equal(t, http.StatusCreated, rec.Code, "message %d: %s", i, rec.Body.String())
		}

		rec := do(http.MethodGet, msgsPath, kingToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []chat.Message
		unmarshal(t, rec, &msgs)
		require.Len(t, msgs, 3)
		assert.Equal(t, []string{"hi", "hello", "how are you?"}, []string{msgs[0].Body, msgs[1].Body, msgs[2].Body})
		assert.Equal(t, king.ID, msgs[1].SenderID)

		rec = do(http.MethodGet, msgsPath+"?skip=1&take=1", heroToken)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &msgs)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello", msgs[0].Body)
	})

	runTests(t, []httpTest{
		{name: "empty message", method: http.MethodPost, path: msgsPath, token: heroToken, body: marchallObj(t, chat.NewMessage{Body: " "}), wantCode: http.StatusBadRequest},
		{
			name: "outsider cannot read", path: msgsPath, token: aceToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "chat not found"}),
		},
		{
			name: "outsider cannot send", method: http.MethodPost, path: msgsPath, token: aceToken, body: marchallObj(t, chat.NewMessage{Body: "hey"}),
			wantCode: http.StatusNotFound,
		},
		{
			name: "admin can read but not send", method: http.MethodPost, path: msgsPath, token: getToken(t, admin), body: marchallObj(t, chat.NewMessage{Body: "hey"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only the chat participants may send messages"}),
		},
		{name: "admin retrieves", path: chatPath, token: getToken(t, admin), wantData: marchallObj(t, heroKing)},
		{name: "all chats: admin only", path: "/v1/chats", token: heroToken, wantCode: http.StatusForbidden},
	})

	t.Run("user chats", func(t *testing.T) {
		aceChat, _, err := deps.ChatSvc.Create(context.Background(), ace, hero.ID)
		require.NoError(t, err)

		rec := do(http.MethodGet, "/v1/chats/mine", heroToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, heroKing, aceChat)}, rec)
		rec = do(http.MethodGet, "/v1/chats/mine", kingToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, heroKing)}, rec)
		rec = do(http.MethodGet, fmt.Sprintf("/v1/users/%d/chats", ace.ID), getToken(t, admin))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, aceChat)}, rec)
		rec = do(http.MethodGet, fmt.Sprintf("/v1/users/%d/chats", ace.ID), kingToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = do(http.MethodGet, "/v1/chats", getToken(t, admin))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, heroKing, aceChat)}, rec)
	})

	runTests(t, []httpTest{
		{name: "outsider cannot delete", method: http.MethodDelete, path: chatPath, token: aceToken, wantCode: http.StatusNotFound},
		{name: "participant deletes", method: http.MethodDelete, path: chatPath, token: kingToken, wantCode: http.StatusNoContent},
		{name: "messages gone", path: msgsPath, token: heroToken, wantCode: http.StatusNotFound},
	})
}

func Test_notificationApi(t *testing.T) {
	reset(t)
	ctx := context.Background()

	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	king := createUser(t, "King", "king@test.cd", user.RoleStudent)
	heroToken := getToken(t, hero)

	var notifs []notification.Notification
	for _, msg := range []string{"first", "second", "third"} {
		n, err := deps.NotificationSvc.Notify(ctx, hero.ID, msg)
		require.NoError(t, err)
		notifs = append(notifs, n)
	}
	kingNotif, err := deps.NotificationSvc.Notify(ctx, king.ID, "other")
	require.NoError(t, err)

	t.Run("own notifications, newest first", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/notifications", heroToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var got []notification.Notification
		unmarshal(t, rec, &got)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"third", "second", "first"}, []string{got[0].Message, got[1].Message, got[2].Message})
	})

	readPath := func(n notification.Notification) string { return fmt.Sprintf("/v1/notifications/%d/read", n.ID) }

	runTests(t, []httpTest{
		{name: "unread count", path: "/v1/notifications/unread-count", token: heroToken, wantData: marchallObj(t, map[string]int{"count": 3})},
		{
			name: "another user's notification", method: http.MethodPost, path: readPath(kingNotif), token: heroToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "notification not found"}),
		},
		{name: "mark as read", method: http.MethodPost, path: readPath(notifs[0]), token: heroToken},
		{name: "mark as read again", method: http.MethodPost, path: readPath(notifs[0]), token: heroToken},
		{name: "one less unread", path: "/v1/notifications/unread-count", token: heroToken, wantData: marchallObj(t, map[string]int{"count": 2})},
		{name: "filter unread", path: "/v1/notifications?take=1&where=" + url.QueryEscape(`{"is_read": false}`), token: heroToken},
		{name: "read all", method: http.MethodPost, path: "/v1/notifications/read-all", token: heroToken, wantData: marchallObj(t, map[string]int{"count": 2})},
		{name: "none unread", path: "/v1/notifications/unread-count", token: heroToken, wantData: marchallObj(t, map[string]int{"count": 0})},
		{name: "delete another user's", method: http.MethodDelete, path: fmt.Sprintf("/v1/notifications/%d", kingNotif.ID), token: heroToken, wantCode: http.StatusNotFound},
		{name: "deleted", method: http.MethodDelete, path: fmt.Sprintf("/v1/notifications/%d", notifs[1].ID), token: heroToken, wantCode: http.StatusNoContent},
	})

	n, err := deps.NotificationSvc.UnreadCount(ctx, king.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
