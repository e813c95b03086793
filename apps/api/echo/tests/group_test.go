package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/group"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/user"
)

func Test_groupApi_crud(t *testing.T) {
	reset(t)

	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	adminToken := getToken(t, admin)

	runTests(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/groups", token: getToken(t, hero),
			body: marchallObj(t, group.NewGroup{Name: "B2"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "required fields", method: http.MethodPost, path: "/v1/groups", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{name: "created B2", method: http.MethodPost, path: "/v1/groups", token: adminToken, body: marchallObj(t, group.NewGroup{Name: "B2"}), wantCode: http.StatusCreated},
		{name: "created A1", method: http.MethodPost, path: "/v1/groups", token: adminToken, body: marchallObj(t, group.NewGroup{Name: " A1 "}), wantCode: http.StatusCreated},
		{
			name: "name taken", method: http.MethodPost, path: "/v1/groups", token: adminToken, body: marchallObj(t, group.NewGroup{Name: "A1"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "a group with this name already exists"}),
		},
		{
			name: "rename to taken name", method: http.MethodPut, path: "/v1/groups/1", token: adminToken,
			body:     marchallObj(t, map[string]string{"name": "A1"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "a group with this name already exists"}),
		},
		{name: "not found", path: "/v1/groups/99", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "group not found"})},
	})

	t.Run("query ordered by name", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/groups", getToken(t, hero))
		require.Equal(t, http.StatusOK, rec.Code)
		var groups []group.Group
		unmarshal(t, rec, &groups)
		require.Len(t, groups, 2)
		assert.Equal(t, "A1", groups[0].Name)
		assert.Equal(t, "B2", groups[1].Name)
	})

	t.Run("update & delete", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/groups/1", adminToken, marchallObj(t, map[string]string{"description": "second year"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var grp group.Group
		unmarshal(t, rec, &grp)
		assert.Equal(t, "B2", grp.Name)
		assert.Equal(t, "second year", grp.Description)

		rec = do(http.MethodDelete, "/v1/groups/1", adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(http.MethodGet, "/v1/groups/1", adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_groupApi_members(t *testing.T) {
	reset(t)
	ctx := context.Background()

	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	teacher := createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	grp, err := deps.GroupSvc.Create(ctx, group.NewGroup{Name: "A1"})
	require.NoError(t, err)
	adminToken := getToken(t, admin)

	runTests(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/groups/1/members", token: getToken(t, teacher),
			body: marchallObj(t, group.MemberRequest{UserID: hero.ID}), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/groups/1/members", token: adminToken,
			body: marchallObj(t, group.MemberRequest{UserID: 99}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "unknown group", method: http.MethodPost, path: "/v1/groups/99/members", token: adminToken,
			body: marchallObj(t, group.MemberRequest{UserID: hero.ID}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
		{name: "invited", method: http.MethodPost, path: "/v1/groups/1/members", token: adminToken, body: marchallObj(t, group.MemberRequest{UserID: hero.ID})},
	})

	t.Run("member listed & notified", func(t *testing.T) {
		hero = refreshUser(t, hero)
		assert.Equal(t, grp.ID, hero.GroupID.Int64)

		rec := do(http.MethodGet, "/v1/groups/1/members", getToken(t, teacher))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, hero)}, rec)

		notifs, err := deps.NotificationSvc.Query(ctx, hero.ID, core.ListQuery{})
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, `You have been added to the group "A1".`, notifs[0].Message)
	})

	runTests(t, []httpTest{
		{name: "members: staff only", path: "/v1/groups/1/members", token: getToken(t, hero), wantCode: http.StatusForbidden},
		{name: "removed", method: http.MethodDelete, path: "/v1/groups/1/members/3", token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "not a member anymore", method: http.MethodDelete, path: "/v1/groups/1/members/3", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user is not a member of this group"}),
		},
		{name: "no members", path: "/v1/groups/1/members", token: adminToken, wantData: marchallList(t)},
	})
}

func Test_groupApi_subjects(t *testing.T) {
	reset(t)
	ctx := context.Background()

	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	_, err := deps.GroupSvc.Create(ctx, group.NewGroup{Name: "A1"})
	require.NoError(t, err)
	maths, err := deps.SubjectSvc.Create(ctx, subject.NewSubject{Name: "Maths"})
	require.NoError(t, err)
	algo, err := deps.SubjectSvc.Create(ctx, subject.NewSubject{Name: "Algorithms"})
	require.NoError(t, err)
	adminToken := getToken(t, admin)

	runTests(t, []httpTest{
		{name: "none linked", path: "/v1/groups/1/subjects", token: getToken(t, hero), wantData: marchallList(t)},
		{
			name: "unknown subject", method: http.MethodPost, path: "/v1/groups/1/subjects", token: adminToken,
			body: marchallObj(t, group.SubjectRequest{SubjectID: 99}), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{name: "link maths", method: http.MethodPost, path: "/v1/groups/1/subjects", token: adminToken, body: marchallObj(t, group.SubjectRequest{SubjectID: maths.ID}), wantCode: http.StatusNoContent},
		{name: "link maths again", method: http.MethodPost, path: "/v1/groups/1/subjects", token: adminToken, body: marchallObj(t, group.SubjectRequest{SubjectID: maths.ID}), wantCode: http.StatusNoContent},
		{name: "link algo", method: http.MethodPost, path: "/v1/groups/1/subjects", token: adminToken, body: marchallObj(t, group.SubjectRequest{SubjectID: algo.ID}), wantCode: http.StatusNoContent},
		{name: "linked", path: "/v1/groups/1/subjects", token: getToken(t, hero), wantData: marchallList(t, algo, maths)},
		{name: "unlink maths", method: http.MethodDelete, path: "/v1/groups/1/subjects/1", token: adminToken, wantCode: http.StatusNoContent},
		{name: "unlinked", path: "/v1/groups/1/subjects", token: getToken(t, hero), wantData: marchallList(t, algo)},
	})
}

func Test_groupApi_events(t *testing.T) {
	reset(t)
	ctx := context.Background()

	teacher := createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	grp, err := deps.GroupSvc.Create(ctx, group.NewGroup{Name: "A1"})
	require.NoError(t, err)
	teacherToken := getToken(t, teacher)

	now := time.Now().UTC().Truncate(time.Second)
	past := event.NewEvent{GroupID: grp.ID, Title: "Orientation", StartsAt: now.Add(-48 * time.Hour)}
	future := event.NewEvent{GroupID: grp.ID, Title: "Exam", StartsAt: now.Add(48 * time.Hour)}
	badEnd := future
	badEnd.EndsAt = &past.StartsAt
	orphan := future
	orphan.GroupID = 99

	runTests(t, []httpTest{
		{name: "staff required", method: http.MethodPost, path: "/v1/events", token: getToken(t, hero), body: marchallObj(t, future), wantCode: http.StatusForbidden},
		{
			name: "ends before start", method: http.MethodPost, path: "/v1/events", token: teacherToken, body: marchallObj(t, badEnd),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ends_at": "ends_at must be after starts_at"}),
		},
		{name: "unknown group", method: http.MethodPost, path: "/v1/events", token: teacherToken, body: marchallObj(t, orphan), wantCode: http.StatusNotFound},
		{name: "created past", method: http.MethodPost, path: "/v1/events", token: teacherToken, body: marchallObj(t, past), wantCode: http.StatusCreated},
		{name: "created future", method: http.MethodPost, path: "/v1/events", token: teacherToken, body: marchallObj(t, future), wantCode: http.StatusCreated},
	})

	statuses := func(t *testing.T, path string) map[string]string {
		rec := do(http.MethodGet, path, getToken(t, hero))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var events []event.Event
		unmarshal(t, rec, &events)
		got := make(map[string]string, len(events))
		for _, e := range events {
			got[e.Title] = e.Status
		}
		return got
	}

	t.Run("status computed at read time", func(t *testing.T) {
		assert.Equal(t, map[string]string{"Orientation": event.StatusOld, "Exam": event.StatusNew}, statuses(t, "/v1/events"))
		assert.Equal(t, map[string]string{"Orientation": event.StatusOld, "Exam": event.StatusNew}, statuses(t, "/v1/groups/1/events"))
	})

	t.Run("status filter", func(t *testing.T) {
		where := url.QueryEscape(`{"status": "New"}`)
		assert.Equal(t, map[string]string{"Exam": event.StatusNew}, statuses(t, "/v1/events?where="+where))
		where = url.QueryEscape(`{"status": "Old"}`)
		assert.Equal(t, map[string]string{"Orientation": event.StatusOld}, statuses(t, "/v1/groups/1/events?where="+where))
	})

	t.Run("moved to the past", func(t *testing.T) {
		body := marchallObj(t, map[string]time.Time{"starts_at": now.Add(-time.Hour)})
		rec := do(http.MethodPut, "/v1/events/2", teacherToken, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var e event.Event
		unmarshal(t, rec, &e)
		assert.Equal(t, event.StatusOld, e.Status)
	})

	t.Run("events of unknown group", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/groups/99/events", getToken(t, hero))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deleted", func(t *testing.T) {
		rec := do(http.MethodDelete, "/v1/events/1", teacherToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(http.MethodGet, "/v1/events/1", teacherToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "event not found"})}, rec)
	})
}

func Test_groupApi_report(t *testing.T) {
	reset(t)
	ctx := context.Background()

	teacher := createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	king := createUser(t, "King", "king@test.cd", user.RoleStudent)
	ace := createUser(t, "Ace", "ace@test.cd", user.RoleStudent)
	grp, err := deps.GroupSvc.Create(ctx, group.NewGroup{Name: "A1"})
	require.NoError(t, err)
	for _, usr := range []user.User{hero, king, ace} {
		_, err = deps.GroupSvc.Invite(ctx, grp.ID, usr.ID)
		require.NoError(t, err)
	}

	maths := createTask(t, "Maths", "Test 1")
	physics := createTask(t, "Physics", "Lab 1")
	gradeUser(t, hero, maths, 80)
	gradeUser(t, hero, physics, 60)
	gradeUser(t, king, maths, 70)

	rec := do(http.MethodGet, "/v1/groups/1/report", getToken(t, hero))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/v1/groups/1/report", getToken(t, teacher))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report grade.GroupReport
	unmarshal(t, rec, &report)

	assert.Equal(t, grp.ID, report.GroupID)
	assert.Equal(t, "A1", report.GroupName)
	require.Len(t, report.Students, 3)
	// hero & king tie at 70: by name
	assert.Equal(t, []string{"Hero", "King", "Ace"}, []string{report.Students[0].Name, report.Students[1].Name, report.Students[2].Name})
	assert.Equal(t, []int{1, 2, 3}, []int{report.Students[0].Rank, report.Students[1].Rank, report.Students[2].Rank})
	assert.Equal(t, 70.0, report.Students[0].Average)
	assert.Equal(t, 0.0, report.Students[2].Average)
	assert.Empty(t, report.Students[2].Subjects)

	rec = do(http.MethodGet, "/v1/groups/99/report", getToken(t, teacher))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
