package echoapi

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/auth"
	"github.com/trezcool/campus/core/user"
)

const (
	contextUserKey   = "user"
	contextObjectKey = "object"

	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	refreshCookiePath  = "/v1/auth"
)

var errTokenUserGone = core.NewUnauthorizedError("invalid or expired jwt")

// tokenFromRequest extracts the access token from the Authorization header, falling back to the access token cookie.
func tokenFromRequest(ctx echo.Context) string {
	if hdr := ctx.Request().Header.Get(echo.HeaderAuthorization); hdr != "" {
		if scheme, token, ok := strings.Cut(hdr, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := ctx.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// jwtMiddleware authenticates requests with an access token and loads the context user.
// If requireOTP is set, tokens issued before the OTP step are rejected.
func jwtMiddleware(authSvc auth.Service, users user.Service, requireOTP bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := tokenFromRequest(ctx)
			if token == "" {
				return errMissingJWT
			}
			claims, err := authSvc.ParseAccessToken(token)
			if err != nil {
				return err
			}
			if requireOTP && !claims.OTPVerified {
				return errOTPRequired
			}

			usr, err := users.GetByID(ctx.Request().Context(), claims.UserID())
			if err != nil {
				if core.IsNotFound(err) {
					return errTokenUserGone
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if usr.Banned {
				return auth.ErrAccountBanned
			}

			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errMissingJWT
}

// authRateLimiter limits the requests per second of each client IP. A zero limit disables it.
func authRateLimiter(conf *core.Config) echo.MiddlewareFunc {
	limit := conf.Server.AuthRateLimit
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     int(math.Ceil(limit)),
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

func (deps ServerDeps) cookie(name, value, path string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   deps.Conf.Auth.CookieDomain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   deps.Conf.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" { // delete
		cookie.Expires = time.Unix(0, 0)
		cookie.MaxAge = -1
	}
	return cookie
}

func setTokenCookies(ctx echo.Context, deps ServerDeps, tokens auth.TokenPair) {
	ctx.SetCookie(deps.cookie(accessTokenCookie, tokens.AccessToken, "/", tokens.AccessExpiresAt))
	ctx.SetCookie(deps.cookie(refreshTokenCookie, tokens.RefreshToken, refreshCookiePath, tokens.RefreshExpiresAt))
}

func clearTokenCookies(ctx echo.Context, deps ServerDeps) {
	setTokenCookies(ctx, deps, auth.TokenPair{})
}
