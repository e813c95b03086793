package auth

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrAuthenticationFailed = core.NewValidationError(errors.New("authentication failed"))
	ErrAccountBanned        = core.NewPermissionError("account banned")
	ErrInvalidCode          = core.NewValidationError(errors.New("invalid code"))
	ErrCodeExpired          = core.NewValidationError(errors.New("code expired"))
	ErrWrongPassword        = core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "wrong password"})
)

type (
	Service interface {
		// Login checks the credentials and, unless the user bypasses the OTP step, emails them a one-time code.
		// The returned tokens are only OTP verified when no code was required.
		Login(ctx context.Context, data LoginRequest) (Session, error)
		VerifyOTP(ctx context.Context, data VerifyOTPRequest) (Session, error)
		Refresh(ctx context.Context, refreshToken string) (Session, error)
		Logout(ctx context.Context, userID int64) error
		// RequestPasswordReset returns user.ErrNotFound for unknown emails; callers should not leak it.
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetPasswordRequest) error
		ChangePassword(ctx context.Context, usr user.User, data ChangePasswordRequest) error
		ParseAccessToken(token string) (*Claims, error)
		// IssueTokens signs a token pair for the user without any credentials check.
		IssueTokens(usr user.User, otpVerified bool) (TokenPair, error)
	}

	service struct {
		conf     *core.Config
		users    user.Service
		mailSvc  core.EmailService
		validate *validator.Validate
		tokens   tokenIssuer
		resets   resetTokenGen
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, users user.Service, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{
		conf:     conf,
		users:    users,
		mailSvc:  mailSvc,
		validate: validate,
		tokens:   newTokenIssuer(conf),
		resets:   resetTokenGen{secret: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta},
	}
}

func (svc *service) Login(ctx context.Context, data LoginRequest) (Session, error) {
	usr, err := svc.users.GetByEmail(ctx, data.Email)
	if err != nil {
		if core.IsNotFound(err) {
			return Session{}, ErrAuthenticationFailed
		}
		return Session{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(data.Password); err != nil {
		return Session{}, ErrAuthenticationFailed
	}
	if usr.Banned {
		return Session{}, ErrAccountBanned
	}

	if svc.conf.IsOTPBypassed(usr.Email) {
		return svc.openSession(ctx, usr)
	}

	code, err := generateOTP()
	if err != nil {
		return Session{}, errors.Wrap(err, "generating otp")
	}
	if err = svc.users.SetOTP(ctx, usr.ID, code, nowFunc().Add(svc.conf.Auth.OTPTTL)); err != nil {
		return Session{}, errors.Wrap(err, "storing otp")
	}
	svc.sendOTPMail(usr, code)

	tokens, err := svc.tokens.issue(usr, false /* otpVerified */)
	if err != nil {
		return Session{}, err
	}
	return Session{User: usr, Tokens: tokens, OTPRequired: true}, nil
}

// openSession marks the user online, stamps their last login and issues verified tokens.
func (svc *service) openSession(ctx context.Context, usr user.User) (Session, error) {
	usr.Online = true
	usr, err := svc.users.SetLastLogin(ctx, usr)
	if err != nil {
		return Session{}, errors.Wrap(err, "setting last login")
	}
	tokens, err := svc.tokens.issue(usr, true /* otpVerified */)
	if err != nil {
		return Session{}, err
	}
	return Session{User: usr, Tokens: tokens}, nil
}

func (svc *service) VerifyOTP(ctx context.Context, data VerifyOTPRequest) (Session, error) {
	usr, err := svc.users.GetByID(ctx, data.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return Session{}, ErrInvalidCode
		}
		return Session{}, errors.Wrap(err, "finding user by ID")
	}
	if usr.Banned {
		return Session{}, ErrAccountBanned
	}

	now := nowFunc()
	switch {
	case usr.OTPCode == "":
		return Session{}, ErrInvalidCode
	case !now.Before(usr.OTPExpiresAt):
		return Session{}, ErrCodeExpired
	case usr.OTPCode != data.Code:
		return Session{}, ErrInvalidCode
	}

	consumed, err := svc.users.ConsumeOTP(ctx, usr.ID, data.Code, now)
	if err != nil {
		return Session{}, errors.Wrap(err, "consuming otp")
	}
	if !consumed { // used by a concurrent request
		return Session{}, ErrInvalidCode
	}
	usr.OTPCode, usr.OTPExpiresAt = "", time.Time{}
	return svc.openSession(ctx, usr)
}

func (svc *service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := svc.tokens.parse(refreshToken, TokenRefresh)
	if err != nil {
		return Session{}, err
	}
	usr, err := svc.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if core.IsNotFound(err) {
			return Session{}, errInvalidJWT
		}
		return Session{}, errors.Wrap(err, "finding user by ID")
	}
	if usr.Banned {
		return Session{}, ErrAccountBanned
	}
	tokens, err := svc.tokens.issue(usr, claims.OTPVerified)
	if err != nil {
		return Session{}, err
	}
	return Session{User: usr, Tokens: tokens, OTPRequired: !claims.OTPVerified}, nil
}

func (svc *service) Logout(ctx context.Context, userID int64) error {
	return errors.Wrap(svc.users.SetOnline(ctx, userID, false), "setting user offline")
}

func (svc *service) ParseAccessToken(token string) (*Claims, error) {
	return svc.tokens.parse(token, TokenAccess)
}

func (svc *service) IssueTokens(usr user.User, otpVerified bool) (TokenPair, error) {
	return svc.tokens.issue(usr, otpVerified)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.Banned {
		return user.ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetPasswordRequest) error {
	invalid := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid(errInvalidToken)
	}
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalid(errInvalidToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.resets.verifyToken(usr, data.Token); err != nil {
		return invalid(err)
	}

	setPwd := user.SetPassword{Password: data.Password, PasswordConfirm: data.PasswordConfirm}
	if err = setPwd.Validate(usr, svc.validate); err != nil {
		return err
	}
	_, err = svc.users.SetPassword(ctx, usr, data.Password)
	return errors.Wrap(err, "setting password")
}

func (svc *service) ChangePassword(ctx context.Context, usr user.User, data ChangePasswordRequest) error {
	if err := usr.CheckPassword(data.OldPassword); err != nil {
		return ErrWrongPassword
	}
	setPwd := user.SetPassword{Password: data.Password, PasswordConfirm: data.PasswordConfirm}
	if err := setPwd.Validate(usr, svc.validate); err != nil {
		return err
	}
	_, err := svc.users.SetPassword(ctx, usr, data.Password)
	return errors.Wrap(err, "setting password")
}

func (svc *service) sendOTPMail(usr user.User, code string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your verification code",
		TemplateName: "otp",
		TemplateData: OTPEmailData{
			Name:      usr.Name,
			Code:      code,
			ExpiresIn: fmt.Sprintf("%.0f minutes", svc.conf.Auth.OTPTTL.Minutes()),
		},
	})
}

func (svc *service) sendPasswordResetMail(usr user.User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: PasswordResetEmailData{
			Name:  usr.Name,
			UID:   EncodeUID(usr),
			Token: svc.resets.makeToken(usr),
		},
	})
}
