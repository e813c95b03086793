package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/group"
)

const groupColumns = "id, name, description, created_at, updated_at"

type groupRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r groupRow) toGroup() group.Group {
	return group.Group{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) Create(ctx context.Context, g group.Group) (group.Group, error) {
	stmt := psql.Insert("groups").
		Columns("name", "description", "created_at", "updated_at").
		Values(g.Name, g.Description, g.CreatedAt, g.UpdatedAt).
		Suffix("RETURNING " + groupColumns)

	var row groupRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return group.Group{}, group.ErrNameExists
		}
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return row.toGroup(), nil
}

func (repo *groupRepository) Query(ctx context.Context, q core.ListQuery) ([]group.Group, error) {
	stmt, err := applyListQuery(psql.Select(groupColumns).From("groups"), "", q)
	if err != nil {
		return nil, err
	}
	var rows []groupRow
	if err = selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]group.Group, len(rows))
	for i, r := range rows {
		groups[i] = r.toGroup()
	}
	return groups, nil
}

func (repo *groupRepository) GetByID(ctx context.Context, id int64) (group.Group, error) {
	var row groupRow
	if err := get(ctx, repo.db, &row, psql.Select(groupColumns).From("groups").Where(sq.Eq{"id": id})); err != nil {
		return group.Group{}, notFoundOr(err, group.ErrNotFound, "selecting group")
	}
	return row.toGroup(), nil
}

func (repo *groupRepository) Update(ctx context.Context, g group.Group) (group.Group, error) {
	stmt := psql.Update("groups").
		Set("name", g.Name).
		Set("description", g.Description).
		Set("updated_at", g.UpdatedAt).
		Where(sq.Eq{"id": g.ID}).
		Suffix("RETURNING " + groupColumns)

	var row groupRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return group.Group{}, group.ErrNameExists
		}
		return group.Group{}, notFoundOr(err, group.ErrNotFound, "updating group")
	}
	return row.toGroup(), nil
}

func (repo *groupRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "groups", id, group.ErrNotFound)
}

func (repo *groupRepository) LinkSubject(ctx context.Context, groupID, subjectID int64) error {
	stmt := psql.Insert("group_subjects").
		Columns("group_id", "subject_id").
		Values(groupID, subjectID).
		Suffix("ON CONFLICT DO NOTHING")
	_, err := exec(ctx, repo.db, stmt)
	return errors.Wrap(err, "linking subject")
}

func (repo *groupRepository) UnlinkSubject(ctx context.Context, groupID, subjectID int64) error {
	_, err := exec(ctx, repo.db, psql.Delete("group_subjects").Where(sq.Eq{"group_id": groupID, "subject_id": subjectID}))
	return errors.Wrap(err, "unlinking subject")
}

func (repo *groupRepository) SubjectIDs(ctx context.Context, groupID int64) ([]int64, error) {
	ids := make([]int64, 0)
	stmt := psql.Select("subject_id").From("group_subjects").Where(sq.Eq{"group_id": groupID}).OrderBy("subject_id")
	if err := selectAll(ctx, repo.db, &ids, stmt); err != nil {
		return nil, errors.Wrap(err, "selecting group subjects")
	}
	return ids, nil
}
