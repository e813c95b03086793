package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// rolesMiddleware only lets through context users having any of the roles.
func rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			for _, role := range roles {
				if usr.HasRole(role) {
					return next(ctx)
				}
			}
			return core.ErrPermissionDenied
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(user.RoleAdmin)
}

// staffMiddleware lets through admins and teachers.
func staffMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(user.RoleAdmin, user.RoleTeacher)
}

// objectUserMiddleware loads the user identified by the `id` path param into the context "object".
// Only the user themselves, admins and users having any of `roles` get to see them.
func objectUserMiddleware(svc user.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			id, err := paramID(ctx, "id")
			if err != nil {
				return err
			}

			allowed := id == ctxUsr.ID || ctxUsr.IsAdmin()
			for _, role := range roles {
				allowed = allowed || ctxUsr.HasRole(role)
			}
			if !allowed {
				return errHttpNotFound
			}

			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextObjectKey, usr)
			return next(ctx)
		}
	}
}

func requestLoggerMiddleware(zl *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				zl.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zl.Info("request", fields...)
			return nil
		},
	})
}
