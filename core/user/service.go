package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		// Create returns ErrEmailExists if the email is taken.
		Create(ctx context.Context, usr User) (User, error)
		Query(ctx context.Context, q core.ListQuery) ([]User, error)
		GetByID(ctx context.Context, id int64) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		// Update saves all the user fields but the OTP ones.
		Update(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...int64) error
		SetOnline(ctx context.Context, id int64, online bool) error
		SetGroup(ctx context.Context, id int64, groupID null.Int64) error
		SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
		// ConsumeOTP clears the stored code if it matches and has not expired at `now`.
		// It reports whether the code was consumed; a single concurrent caller can win.
		ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, q core.ListQuery) ([]User, error)
		GetByID(ctx context.Context, id int64) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetBanned(ctx context.Context, id int64, banned bool) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetOnline(ctx context.Context, id int64, online bool) error
		SetGroup(ctx context.Context, id int64, groupID null.Int64) error
		SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
		ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error)
		Delete(ctx context.Context, ids ...int64) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func emailExists(err error) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return err
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Roles:     nu.Roles,
		AvatarURL: nu.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if nu.GroupID != nil {
		usr.GroupID = null.Int64From(*nu.GroupID)
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.Create(ctx, usr)
	return usr, emailExists(err)
}

func (svc *service) Query(ctx context.Context, q core.ListQuery) ([]User, error) {
	if err := q.Validate(QueryFields); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, q.OrderedBy(core.DBOrdering{Field: "id", Ascending: true}))
}

func (svc *service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr = uu.Apply(usr)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err := svc.repo.Update(ctx, usr)
	return usr, emailExists(err)
}

func (svc *service) SetBanned(ctx context.Context, id int64, banned bool) (User, error) {
	usr, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Banned = banned
	if banned {
		usr.Online = false
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.Update(ctx, usr)
}

func (svc *service) SetOnline(ctx context.Context, id int64, online bool) error {
	return svc.repo.SetOnline(ctx, id, online)
}

func (svc *service) SetGroup(ctx context.Context, id int64, groupID null.Int64) error {
	return svc.repo.SetGroup(ctx, id, groupID)
}

func (svc *service) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return svc.repo.SetOTP(ctx, id, code, expiresAt.UTC())
}

func (svc *service) ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error) {
	return svc.repo.ConsumeOTP(ctx, id, code, now.UTC())
}

func (svc *service) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.Delete(ctx, ids...)
}
