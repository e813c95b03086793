package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestRowsAreUTC(t *testing.T) {
	local := time.FixedZone("WAT", 3600)
	ts := time.Date(2021, 3, 1, 9, 30, 0, 0, local)
	nts := null.TimeFrom(ts)

	isUTC := func(t *testing.T, name string, tm time.Time) {
		t.Helper()
		assert.Equal(t, time.UTC, tm.Location(), name)
		assert.True(t, tm.Equal(ts), name)
	}

	c := chatRow{ID: 1, User1ID: 1, User2ID: 2, CreatedAt: ts}.toChat()
	isUTC(t, "chat.created_at", c.CreatedAt)

	m := messageRow{ID: 1, ChatID: 1, SenderID: 1, Body: "hi", CreatedAt: ts}.toMessage()
	isUTC(t, "message.created_at", m.CreatedAt)

	e := eventRow{StartsAt: ts, EndsAt: nts, CreatedAt: ts, UpdatedAt: ts}.toEvent()
	isUTC(t, "event.starts_at", e.StartsAt)
	isUTC(t, "event.ends_at", e.EndsAt.Time)
	isUTC(t, "event.updated_at", e.UpdatedAt)

	g := gradeRow{CreatedAt: ts, UpdatedAt: ts}.toGrade()
	isUTC(t, "grade.created_at", g.CreatedAt)

	l := lessonRow{StartsAt: ts, EndsAt: ts, CreatedAt: ts, UpdatedAt: ts}.toLesson()
	isUTC(t, "lesson.starts_at", l.StartsAt)
	isUTC(t, "lesson.ends_at", l.EndsAt)

	n := notificationRow{CreatedAt: ts}.toNotification()
	isUTC(t, "notification.created_at", n.CreatedAt)

	tk := taskRow{DueAt: nts, CreatedAt: ts, UpdatedAt: ts}.toTask()
	isUTC(t, "task.due_at", tk.DueAt.Time)
	isUTC(t, "task.created_at", tk.CreatedAt)

	assert.False(t, taskRow{}.toTask().DueAt.Valid, "null stays null")
}
