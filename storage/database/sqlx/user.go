package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const userColumns = "id, name, email, password_hash, roles, online, banned, otp_code, otp_expires_at, group_id, avatar_url, last_login, created_at, updated_at"

type userRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	PasswordHash []byte         `db:"password_hash"`
	Roles        pq.StringArray `db:"roles"`
	Online       bool           `db:"online"`
	Banned       bool           `db:"banned"`
	OTPCode      null.String    `db:"otp_code"`
	OTPExpiresAt null.Time      `db:"otp_expires_at"`
	GroupID      null.Int64     `db:"group_id"`
	AvatarURL    string         `db:"avatar_url"`
	LastLogin    null.Time      `db:"last_login"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	roles := []string(r.Roles)
	if roles == nil {
		roles = []string{}
	}
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Roles:        roles,
		Online:       r.Online,
		Banned:       r.Banned,
		GroupID:      r.GroupID,
		AvatarURL:    r.AvatarURL,
		PasswordHash: r.PasswordHash,
		OTPCode:      r.OTPCode.String,
		OTPExpiresAt: r.OTPExpiresAt.Time.UTC(),
		LastLogin:    utcTime(r.LastLogin),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func utcTime(t null.Time) null.Time {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}

func rolesArray(roles []string) pq.StringArray {
	if roles == nil {
		return pq.StringArray{}
	}
	return roles
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	stmt := psql.Insert("users").
		Columns("name", "email", "password_hash", "roles", "online", "banned", "group_id", "avatar_url", "last_login", "created_at", "updated_at").
		Values(usr.Name, usr.Email, usr.PasswordHash, rolesArray(usr.Roles), usr.Online, usr.Banned, usr.GroupID, usr.AvatarURL, usr.LastLogin, usr.CreatedAt, usr.UpdatedAt).
		Suffix("RETURNING " + userColumns)

	var row userRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) query(ctx context.Context, stmt sq.SelectBuilder) ([]user.User, error) {
	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, stmt); err != nil {
		return nil, err
	}
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.toUser()
	}
	return users, nil
}

func (repo *userRepository) Query(ctx context.Context, q core.ListQuery) ([]user.User, error) {
	stmt, err := applyListQuery(psql.Select(userColumns).From("users"), "", q)
	if err != nil {
		return nil, err
	}
	users, err := repo.query(ctx, stmt)
	return users, errors.Wrap(err, "querying users")
}

func (repo *userRepository) getBy(ctx context.Context, cond sq.Eq) (user.User, error) {
	var row userRow
	if err := get(ctx, repo.db, &row, psql.Select(userColumns).From("users").Where(cond)); err != nil {
		return user.User{}, notFoundOr(err, user.ErrNotFound, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetByID(ctx context.Context, id int64) (user.User, error) {
	return repo.getBy(ctx, sq.Eq{"id": id})
}

func (repo *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getBy(ctx, sq.Eq{"email": email})
}

func (repo *userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	stmt := psql.Update("users").
		SetMap(map[string]interface{}{
			"name":          usr.Name,
			"email":         usr.Email,
			"password_hash": usr.PasswordHash,
			"roles":         rolesArray(usr.Roles),
			"online":        usr.Online,
			"banned":        usr.Banned,
			"group_id":      usr.GroupID,
			"avatar_url":    usr.AvatarURL,
			"last_login":    usr.LastLogin,
			"updated_at":    usr.UpdatedAt,
		}).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING " + userColumns)

	var row userRow
	if err := get(ctx, repo.db, &row, stmt); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, notFoundOr(err, user.ErrNotFound, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := exec(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": ids}))
	return errors.Wrap(err, "deleting users")
}

func (repo *userRepository) set(ctx context.Context, id int64, values map[string]interface{}) error {
	n, err := exec(ctx, repo.db, psql.Update("users").SetMap(values).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetOnline(ctx context.Context, id int64, online bool) error {
	return repo.set(ctx, id, map[string]interface{}{"online": online})
}

func (repo *userRepository) SetGroup(ctx context.Context, id int64, groupID null.Int64) error {
	return repo.set(ctx, id, map[string]interface{}{"group_id": groupID, "updated_at": time.Now().UTC()})
}

func (repo *userRepository) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return repo.set(ctx, id, map[string]interface{}{"otp_code": code, "otp_expires_at": expiresAt.UTC()})
}

// ConsumeOTP is a conditional update: of concurrent callers with the right code, only one updates the row.
func (repo *userRepository) ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error) {
	stmt := psql.Update("users").
		Set("otp_code", nil).
		Set("otp_expires_at", nil).
		Where(sq.Eq{"id": id, "otp_code": code}).
		Where(sq.Gt{"otp_expires_at": now.UTC()})

	n, err := exec(ctx, repo.db, stmt)
	if err != nil {
		return false, errors.Wrap(err, "consuming otp")
	}
	return n == 1, nil
}
