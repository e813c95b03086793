package auth

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	VerifyOTPRequest struct {
		UserID int64  `json:"user_id" validate:"required"`
		Code   string `json:"code" validate:"required,otpcode"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPasswordRequest struct {
		UID             string `json:"uid" validate:"required"`
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	ChangePasswordRequest struct {
		OldPassword     string `json:"old_password" validate:"required"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	// Session is the outcome of a successful authentication step.
	Session struct {
		User        user.User
		Tokens      TokenPair
		OTPRequired bool
	}

	// OTPEmailData is the data of the `otp` email template.
	OTPEmailData struct {
		Name      string
		Code      string
		ExpiresIn string
	}

	// PasswordResetEmailData is the data of the `password_reset` email template.
	PasswordResetEmailData struct {
		Name  string
		UID   string
		Token string
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (vr *VerifyOTPRequest) Validate(validate *validator.Validate) error {
	vr.Code = core.CleanString(vr.Code)
	return validate.Struct(vr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (rp *ResetPasswordRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

func (cp *ChangePasswordRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}
