// Package inmemdb implements the repositories on top of in-memory tables.
// All tables share a single lock so that deletes can cascade like their SQL counterparts.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/campus/core/chat"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/group"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/task"
	"github.com/trezcool/campus/core/user"
)

type groupSubject struct {
	groupID, subjectID int64
}

type DB struct {
	mu sync.RWMutex

	users         *table[user.User]
	groups        *table[group.Group]
	groupSubjects map[groupSubject]struct{}
	subjects      *table[subject.Subject]
	lessons       *table[lesson.Lesson]
	tasks         *table[task.Task]
	grades        *table[grade.TaskGrade]
	events        *table[event.Event]
	chats         *table[chat.Chat]
	messages      *table[chat.Message]
	notifications *table[notification.Notification]
}

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties all tables and resets their sequences.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = newTable(func(u *user.User) *int64 { return &u.ID })
	db.groups = newTable(func(g *group.Group) *int64 { return &g.ID })
	db.groupSubjects = make(map[groupSubject]struct{})
	db.subjects = newTable(func(s *subject.Subject) *int64 { return &s.ID })
	db.lessons = newTable(func(l *lesson.Lesson) *int64 { return &l.ID })
	db.tasks = newTable(func(t *task.Task) *int64 { return &t.ID })
	db.grades = newTable(func(g *grade.TaskGrade) *int64 { return &g.ID })
	db.events = newTable(func(e *event.Event) *int64 { return &e.ID })
	db.chats = newTable(func(c *chat.Chat) *int64 { return &c.ID })
	db.messages = newTable(func(m *chat.Message) *int64 { return &m.ID })
	db.notifications = newTable(func(n *notification.Notification) *int64 { return &n.ID })
}

// table is an auto-incremented set of rows, not safe for concurrent use.
type table[T any] struct {
	seq  int64
	rows map[int64]T
	id   func(*T) *int64
}

func newTable[T any](id func(*T) *int64) *table[T] {
	return &table[T]{rows: make(map[int64]T), id: id}
}

func (t *table[T]) insert(row T) T {
	t.seq++
	*t.id(&row) = t.seq
	t.rows[t.seq] = row
	return row
}

func (t *table[T]) get(id int64) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// put replaces an existing row; it reports false if there is none.
func (t *table[T]) put(row T) bool {
	id := *t.id(&row)
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = row
	return true
}

func (t *table[T]) delete(ids ...int64) {
	for _, id := range ids {
		delete(t.rows, id)
	}
}

// all returns the rows sorted by id.
func (t *table[T]) all() []T {
	return t.filter(func(T) bool { return true })
}

// filter returns the rows matching `pred`, sorted by id.
func (t *table[T]) filter(pred func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if pred(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, t.rows[id])
	}
	return rows
}

func (t *table[T]) find(pred func(T) bool) (T, bool) {
	for _, row := range t.filter(pred) {
		return row, true
	}
	var zero T
	return zero, false
}

// update applies `fn` to the rows matching `pred` and returns their number.
func (t *table[T]) update(pred func(T) bool, fn func(*T)) int64 {
	var n int64
	for id, row := range t.rows {
		if pred(row) {
			fn(&row)
			t.rows[id] = row
			n++
		}
	}
	return n
}

// deleteWhere deletes the rows matching `pred` and returns their ids.
func (t *table[T]) deleteWhere(pred func(T) bool) []int64 {
	var ids []int64
	for id, row := range t.rows {
		if pred(row) {
			ids = append(ids, id)
		}
	}
	t.delete(ids...)
	return ids
}

func contains(ids []int64, id int64) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
