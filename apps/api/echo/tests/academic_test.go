package tests

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/task"
	"github.com/trezcool/campus/core/user"
)

// createTask creates a task in the named subject, creating the subject if needed.
func createTask(t *testing.T, subjectName, title string) task.Task {
	ctx := context.Background()
	subs, err := deps.SubjectSvc.Query(ctx, core.ListQuery{}.With(core.Eq("name", subjectName)))
	require.NoError(t, err)

	var sub subject.Subject
	if len(subs) > 0 {
		sub = subs[0]
	} else {
		sub, err = deps.SubjectSvc.Create(ctx, subject.NewSubject{Name: subjectName})
		require.NoError(t, err)
	}
	tsk, err := deps.TaskSvc.Create(ctx, task.NewTask{SubjectID: sub.ID, Title: title})
	require.NoError(t, err)
	return tsk
}

func gradeUser(t *testing.T, usr user.User, tsk task.Task, score float64) grade.TaskGrade {
	grd, err := deps.GradeSvc.Create(context.Background(), grade.NewTaskGrade{UserID: usr.ID, TaskID: tsk.ID, Score: &score})
	require.NoError(t, err)
	return grd
}

func Test_subjectApi(t *testing.T) {
	reset(t)

	admin := createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	teacher := createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	adminToken := getToken(t, admin)

	runTests(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/subjects", token: getToken(t, teacher),
			body: marchallObj(t, subject.NewSubject{Name: "Maths"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "unknown teacher", method: http.MethodPost, path: "/v1/subjects", token: adminToken,
			body:     marchallObj(t, subject.NewSubject{Name: "Maths", TeacherID: &[]int64{99}[0]}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher_id": "user not found"}),
		},
		{
			name: "not a teacher", method: http.MethodPost, path: "/v1/subjects", token: adminToken,
			body:     marchallObj(t, subject.NewSubject{Name: "Maths", TeacherID: &hero.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher_id": "user is not a teacher"}),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/subjects", token: adminToken,
			body: marchallObj(t, subject.NewSubject{Name: "Maths", TeacherID: &teacher.ID}), wantCode: http.StatusCreated,
		},
		{
			name: "name taken", method: http.MethodPost, path: "/v1/subjects", token: adminToken,
			body:     marchallObj(t, subject.NewSubject{Name: "Maths"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "a subject with this name already exists"}),
		},
		{
			name: "blank name", method: http.MethodPut, path: "/v1/subjects/1", token: adminToken,
			body:     marchallObj(t, map[string]string{"name": "  "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field cannot be blank"}),
		},
	})

	t.Run("unassign teacher", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/subjects/1", adminToken, marchallObj(t, map[string]int64{"teacher_id": 0}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sub subject.Subject
		unmarshal(t, rec, &sub)
		assert.False(t, sub.TeacherID.Valid)
	})

	t.Run("readable by students", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/subjects/1", getToken(t, hero))
		require.Equal(t, http.StatusOK, rec.Code)
		var sub subject.Subject
		unmarshal(t, rec, &sub)
		assert.Equal(t, "Maths", sub.Name)
	})

	runTests(t, []httpTest{
		{name: "delete: admin required", method: http.MethodDelete, path: "/v1/subjects/1", token: getToken(t, teacher), wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: "/v1/subjects/1", token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", path: "/v1/subjects/1", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"})},
	})
}

func Test_lessonAndTaskApi(t *testing.T) {
	reset(t)
	ctx := context.Background()

	teacher := createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	teacherToken := getToken(t, teacher)
	maths, err := deps.SubjectSvc.Create(ctx, subject.NewSubject{Name: "Maths"})
	require.NoError(t, err)
	physics, err := deps.SubjectSvc.Create(ctx, subject.NewSubject{Name: "Physics"})
	require.NoError(t, err)

	start := time.Date(2026, time.October, 5, 8, 0, 0, 0, time.UTC)
	algebra := lesson.NewLesson{SubjectID: maths.ID, Title: "Algebra", Room: "B12", StartsAt: start, EndsAt: start.Add(90 * time.Minute)}
	inverted := algebra
	inverted.EndsAt = start.Add(-time.Hour)
	orphan := algebra
	orphan.SubjectID = 99

	runTests(t, []httpTest{
		{name: "lesson: staff required", method: http.MethodPost, path: "/v1/lessons", token: getToken(t, hero), body: marchallObj(t, algebra), wantCode: http.StatusForbidden},
		{name: "lesson: ends before start", method: http.MethodPost, path: "/v1/lessons", token: teacherToken, body: marchallObj(t, inverted), wantCode: http.StatusBadRequest},
		{
			name: "lesson: unknown subject", method: http.MethodPost, path: "/v1/lessons", token: teacherToken, body: marchallObj(t, orphan),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{name: "lesson: created", method: http.MethodPost, path: "/v1/lessons", token: teacherToken, body: marchallObj(t, algebra), wantCode: http.StatusCreated},
		{
			name: "lesson: moved after its end", method: http.MethodPut, path: "/v1/lessons/1", token: teacherToken,
			body:     marchallObj(t, map[string]time.Time{"starts_at": start.Add(2 * time.Hour)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ends_at": "ends_at must be after starts_at"}),
		},
	})

	lessonID := int64(1)
	runTests(t, []httpTest{
		{
			name: "task: lesson of another subject", method: http.MethodPost, path: "/v1/tasks", token: teacherToken,
			body:     marchallObj(t, task.NewTask{SubjectID: physics.ID, LessonID: &lessonID, Title: "Homework"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"lesson_id": "lesson does not belong to this subject"}),
		},
		{
			name: "task: unknown lesson", method: http.MethodPost, path: "/v1/tasks", token: teacherToken,
			body:     marchallObj(t, task.NewTask{SubjectID: maths.ID, LessonID: &[]int64{99}[0], Title: "Homework"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"lesson_id": "lesson not found"}),
		},
		{
			name: "task: created", method: http.MethodPost, path: "/v1/tasks", token: teacherToken,
			body: marchallObj(t, task.NewTask{SubjectID: maths.ID, LessonID: &lessonID, Title: "Homework"}), wantCode: http.StatusCreated,
		},
		{
			name: "task: created without lesson", method: http.MethodPost, path: "/v1/tasks", token: teacherToken,
			body: marchallObj(t, task.NewTask{SubjectID: physics.ID, Title: "Lab report"}), wantCode: http.StatusCreated,
		},
	})

	t.Run("tasks of a subject", func(t *testing.T) {
		where := url.QueryEscape(fmt.Sprintf(`{"subject_id": %d}`, maths.ID))
		rec := do(http.MethodGet, "/v1/tasks?where="+where, getToken(t, hero))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tasks []task.Task
		unmarshal(t, rec, &tasks)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Homework", tasks[0].Title)
		assert.Equal(t, lessonID, tasks[0].LessonID.Int64)
	})

	t.Run("task detached from lesson", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/tasks/1", teacherToken, marchallObj(t, map[string]int64{"lesson_id": 0}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tsk task.Task
		unmarshal(t, rec, &tsk)
		assert.False(t, tsk.LessonID.Valid)
	})

	runTests(t, []httpTest{
		{name: "lesson: deleted", method: http.MethodDelete, path: "/v1/lessons/1", token: teacherToken, wantCode: http.StatusNoContent},
		{name: "lesson: gone", path: "/v1/lessons/1", token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "lesson not found"})},
		{name: "task: deleted", method: http.MethodDelete, path: "/v1/tasks/2", token: teacherToken, wantCode: http.StatusNoContent},
		{name: "task: gone", path: "/v1/tasks/2", token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "task not found"})},
	})
}

func Test_gradeApi(t *testing.T) {
	reset(t)
	ctx := context.Background()

	teacher := createUser(t, "Teacher", "teacher@test.cd", user.RoleTeacher)
	hero := createUser(t, "Hero", "hero@test.cd", user.RoleStudent)
	king := createUser(t, "King", "king@test.cd", user.RoleStudent)
	teacherToken := getToken(t, teacher)
	heroToken := getToken(t, hero)

	test1 := createTask(t, "Maths", "Test 1")
	test2 := createTask(t, "Maths", "Test 2")
	lab := createTask(t, "Physics", "Lab 1")

	score := func(f float64) *float64 { return &f }

	runTests(t, []httpTest{
		{
			name: "staff required", method: http.MethodPost, path: "/v1/grades", token: heroToken,
			body: marchallObj(t, grade.NewTaskGrade{UserID: hero.ID, TaskID: test1.ID, Score: score(100)}), wantCode: http.StatusForbidden,
		},
		{
			name: "score out of range", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body: marchallObj(t, grade.NewTaskGrade{UserID: hero.ID, TaskID: test1.ID, Score: score(101)}), wantCode: http.StatusBadRequest,
		},
		{
			name: "not a student", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     marchallObj(t, grade.NewTaskGrade{UserID: teacher.ID, TaskID: test1.ID, Score: score(50)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": "user is not a student"}),
		},
		{
			name: "unknown task", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     marchallObj(t, grade.NewTaskGrade{UserID: hero.ID, TaskID: 99, Score: score(50)}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "task not found"}),
		},
		{
			name: "zero score is accepted", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body: marchallObj(t, grade.NewTaskGrade{UserID: hero.ID, TaskID: test1.ID, Score: score(0)}), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate", method: http.MethodPost, path: "/v1/grades", token: teacherToken,
			body:     marchallObj(t, grade.NewTaskGrade{UserID: hero.ID, TaskID: test1.ID, Score: score(60)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"task_id": "this user already has a grade for this task"}),
		},
	})

	t.Run("student notified", func(t *testing.T) {
		notifs, err := deps.NotificationSvc.Query(ctx, hero.ID, core.ListQuery{})
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, `You received a grade of 0 for the task "Test 1".`, notifs[0].Message)
	})

	t.Run("update notifies only on score change", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/grades/1", teacherToken, marchallObj(t, map[string]string{"comment": "see me"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = do(http.MethodPut, "/v1/grades/1", teacherToken, marchallObj(t, map[string]float64{"score": 90}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var grd grade.TaskGrade
		unmarshal(t, rec, &grd)
		assert.Equal(t, 90.0, grd.Score)
		assert.Equal(t, "see me", grd.Comment)

		n, err := deps.NotificationSvc.UnreadCount(ctx, hero.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	gradeUser(t, hero, test2, 75)
	gradeUser(t, hero, lab, 95)
	kingGrade := gradeUser(t, king, test1, 40)

	t.Run("students see their own grades", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/grades/mine", heroToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var grades []grade.TaskGrade
		unmarshal(t, rec, &grades)
		assert.Len(t, grades, 3)
		for _, g := range grades {
			assert.Equal(t, hero.ID, g.UserID)
		}

		rec = do(http.MethodGet, fmt.Sprintf("/v1/grades/%d", kingGrade.ID), heroToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "grade not found"})}, rec)
		rec = do(http.MethodGet, fmt.Sprintf("/v1/grades/%d", kingGrade.ID), getToken(t, king))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("averages", func(t *testing.T) {
		want := []grade.SubjectAverage{
			{SubjectID: lab.SubjectID, SubjectName: "Physics", Average: 95, Grades: 1},
			{SubjectID: test1.SubjectID, SubjectName: "Maths", Average: 82.5, Grades: 2},
		}
		rec := do(http.MethodGet, "/v1/grades/mine/averages", heroToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)

		rec = do(http.MethodGet, fmt.Sprintf("/v1/users/%d/grades", hero.ID), teacherToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)

		rec = do(http.MethodGet, fmt.Sprintf("/v1/users/%d/grades", hero.ID), getToken(t, king))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	runTests(t, []httpTest{
		{name: "query: staff only", path: "/v1/grades", token: heroToken, wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: "/v1/grades/1", token: teacherToken, wantCode: http.StatusNoContent},
		{name: "gone", path: "/v1/grades/1", token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "grade not found"})},
	})
}
