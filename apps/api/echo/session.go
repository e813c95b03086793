package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/auth"
	"github.com/trezcool/campus/core/user"
)

var passwordResetSentMsg = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type (
	LoginResponse struct {
		AccessToken     string    `json:"access_token"`
		AccessExpiresAt time.Time `json:"access_expires_at"`
		OTPRequired     bool      `json:"otp_required"`
		User            user.User `json:"user"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}
)

type authApi struct {
	deps     ServerDeps
	svc      auth.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt, pendingJWT, limiter echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		deps:     deps,
		svc:      deps.AuthSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login, limiter)
	ag.POST("/verify-otp", api.verifyOTP, limiter)
	ag.POST("/refresh", api.refresh, limiter)
	ag.POST("/password-reset", api.requestPasswordReset, limiter)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, limiter)

	// authed endpoints
	ag.POST("/logout", api.logout, pendingJWT)
	ag.POST("/change-password", api.changePassword, jwt)
	ag.GET("/me", api.me, jwt)
}

func (api *authApi) respondSession(ctx echo.Context, sess auth.Session) error {
	setTokenCookies(ctx, api.deps, sess.Tokens)
	return ctx.JSON(http.StatusOK, LoginResponse{
		AccessToken:     sess.Tokens.AccessToken,
		AccessExpiresAt: sess.Tokens.AccessExpiresAt,
		OTPRequired:     sess.OTPRequired,
		User:            sess.User,
	})
}

func (api *authApi) login(ctx echo.Context) error {
	var data auth.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return api.respondSession(ctx, sess)
}

func (api *authApi) verifyOTP(ctx echo.Context) error {
	var data auth.VerifyOTPRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyOTPRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.VerifyOTP(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying otp")
	}
	return api.respondSession(ctx, sess)
}

func (api *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if data.RefreshToken == "" {
		if cookie, err := ctx.Cookie(refreshTokenCookie); err == nil {
			data.RefreshToken = cookie.Value
		}
	}
	if data.RefreshToken == "" {
		return errMissingJWT
	}

	sess, err := api.svc.Refresh(ctx.Request().Context(), data.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "refreshing tokens")
	}
	return api.respondSession(ctx, sess)
}

func (api *authApi) logout(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Logout(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "logging out")
	}
	clearTokenCookies(ctx, api.deps)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Successfully logged out."})
}

func (api *authApi) requestPasswordReset(ctx echo.Context) error {
	var data auth.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		api.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetSentMsg})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data auth.ResetPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPasswordRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data auth.ChangePasswordRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}
