package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/group"
	"github.com/trezcool/campus/core/user"
)

type groupRepository struct {
	db *DB
}

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) nameTaken(name string, excludedID int64) bool {
	_, taken := repo.db.groups.find(func(g group.Group) bool { return g.Name == name && g.ID != excludedID })
	return taken
}

func (repo *groupRepository) Create(ctx context.Context, g group.Group) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.nameTaken(g.Name, 0) {
		return group.Group{}, group.ErrNameExists
	}
	return repo.db.groups.insert(g), nil
}

func (repo *groupRepository) Query(ctx context.Context, q core.ListQuery) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.groups.all(), q)
}

func (repo *groupRepository) GetByID(ctx context.Context, id int64) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.groups.get(id); ok {
		return g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) Update(ctx context.Context, g group.Group) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups.get(g.ID); !ok {
		return group.Group{}, group.ErrNotFound
	}
	if repo.nameTaken(g.Name, g.ID) {
		return group.Group{}, group.ErrNameExists
	}
	repo.db.groups.put(g)
	return g, nil
}

// Delete cascades to the group events and subject links, and detaches its members.
func (repo *groupRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups.get(id); !ok {
		return group.ErrNotFound
	}
	repo.db.groups.delete(id)
	repo.db.events.deleteWhere(func(e event.Event) bool { return e.GroupID == id })
	for link := range repo.db.groupSubjects {
		if link.groupID == id {
			delete(repo.db.groupSubjects, link)
		}
	}
	repo.db.users.update(
		func(u user.User) bool { return u.GroupID.Valid && u.GroupID.Int64 == id },
		func(u *user.User) { u.GroupID = null.Int64{} },
	)
	return nil
}

func (repo *groupRepository) LinkSubject(ctx context.Context, groupID, subjectID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.groupSubjects[groupSubject{groupID: groupID, subjectID: subjectID}] = struct{}{}
	return nil
}

func (repo *groupRepository) UnlinkSubject(ctx context.Context, groupID, subjectID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.groupSubjects, groupSubject{groupID: groupID, subjectID: subjectID})
	return nil
}

func (repo *groupRepository) SubjectIDs(ctx context.Context, groupID int64) ([]int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]int64, 0)
	for link := range repo.db.groupSubjects {
		if link.groupID == groupID {
			ids = append(ids, link.subjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
