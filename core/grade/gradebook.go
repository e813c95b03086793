package grade

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/group"
	"github.com/trezcool/campus/core/user"
)

// GradeBook computes averages out of the task grades.
type GradeBook interface {
	// StudentAverages returns the student's average per subject, best first.
	StudentAverages(ctx context.Context, userID int64) ([]SubjectAverage, error)
	// GroupReport ranks the students of the group by overall average, the mean of their subject averages.
	GroupReport(ctx context.Context, groupID int64) (GroupReport, error)
}

type gradeBook struct {
	repo   Repository
	users  user.Service
	groups group.Service
}

var _ GradeBook = (*gradeBook)(nil)

func NewGradeBook(repo Repository, users user.Service, groups group.Service) GradeBook {
	return &gradeBook{repo: repo, users: users, groups: groups}
}

func (gb *gradeBook) StudentAverages(ctx context.Context, userID int64) ([]SubjectAverage, error) {
	if _, err := gb.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	scores, err := gb.repo.ListScores(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing scores")
	}
	return subjectAverages(scores), nil
}

func (gb *gradeBook) GroupReport(ctx context.Context, groupID int64) (GroupReport, error) {
	g, err := gb.groups.GetByID(ctx, groupID)
	if err != nil {
		return GroupReport{}, err
	}
	students, err := gb.groups.Members(ctx, g.ID, core.ListQuery{
		Where: []core.Condition{{Field: "roles", Op: core.OpHas, Value: user.RoleStudent}},
	})
	if err != nil {
		return GroupReport{}, errors.Wrap(err, "listing group students")
	}

	report := GroupReport{GroupID: g.ID, GroupName: g.Name, Students: make([]StudentReport, 0, len(students))}
	if len(students) == 0 {
		return report, nil
	}

	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	scores, err := gb.repo.ListScores(ctx, ids...)
	if err != nil {
		return GroupReport{}, errors.Wrap(err, "listing scores")
	}
	byUser := make(map[int64][]Score, len(students))
	for _, s := range scores {
		byUser[s.UserID] = append(byUser[s.UserID], s)
	}

	for _, s := range students {
		avgs := subjectAverages(byUser[s.ID])
		report.Students = append(report.Students, StudentReport{
			UserID:   s.ID,
			Name:     s.Name,
			Average:  overallAverage(avgs),
			Subjects: avgs,
		})
	}
	sort.SliceStable(report.Students, func(i, j int) bool {
		a, b := report.Students[i], report.Students[j]
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UserID < b.UserID
	})
	for i := range report.Students {
		report.Students[i].Rank = i + 1
	}
	return report, nil
}

// subjectAverages groups the scores by subject and averages them, sorted by average desc then subject name.
func subjectAverages(scores []Score) []SubjectAverage {
	type acc struct {
		name  string
		sum   float64
		count int
	}
	bySubject := make(map[int64]*acc)
	for _, s := range scores {
		a, ok := bySubject[s.SubjectID]
		if !ok {
			a = &acc{name: s.SubjectName}
			bySubject[s.SubjectID] = a
		}
		a.sum += s.Score
		a.count++
	}

	avgs := make([]SubjectAverage, 0, len(bySubject))
	for id, a := range bySubject {
		avgs = append(avgs, SubjectAverage{
			SubjectID:   id,
			SubjectName: a.name,
			Average:     core.Round2(a.sum / float64(a.count)),
			Grades:      a.count,
		})
	}
	sort.Slice(avgs, func(i, j int) bool {
		if avgs[i].Average != avgs[j].Average {
			return avgs[i].Average > avgs[j].Average
		}
		if avgs[i].SubjectName != avgs[j].SubjectName {
			return avgs[i].SubjectName < avgs[j].SubjectName
		}
		return avgs[i].SubjectID < avgs[j].SubjectID
	})
	return avgs
}

func overallAverage(avgs []SubjectAverage) float64 {
	if len(avgs) == 0 {
		return 0
	}
	var sum float64
	for _, a := range avgs {
		sum += a.Average
	}
	return core.Round2(sum / float64(len(avgs)))
}
