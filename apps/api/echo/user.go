package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chat"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/group"
	"github.com/trezcool/campus/core/user"
)

var (
	errUsrNotFoundInCtx  = errors.New("user object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
)

type userApi struct {
	svc       user.Service
	groups    group.Service
	gradeBook grade.GradeBook
	chats     chat.Service
	validate  *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:       deps.UserSvc,
		groups:    deps.GroupSvc,
		gradeBook: deps.GradeBook,
		chats:     deps.ChatSvc,
		validate:  deps.Validate,
	}

	ug := g.Group("/users", jwt)
	ug.POST("", api.create, adminMiddleware())
	ug.GET("", api.query, staffMiddleware())
	ug.DELETE("", api.destroyMultiple, adminMiddleware())
	ug.GET("/roles", api.queryRoles)

	// detail endpoints
	dg := ug.Group("/:id")
	dg.GET("", api.retrieve, objectUserMiddleware(api.svc))
	dg.PUT("", api.update, objectUserMiddleware(api.svc))
	dg.DELETE("", api.destroy, adminMiddleware(), objectUserMiddleware(api.svc))
	dg.POST("/ban", api.ban, adminMiddleware(), objectUserMiddleware(api.svc))
	dg.POST("/unban", api.unban, adminMiddleware(), objectUserMiddleware(api.svc))
	dg.GET("/grades", api.averages, objectUserMiddleware(api.svc, user.RoleTeacher))
	dg.GET("/chats", api.queryChats, objectUserMiddleware(api.svc))
}

func ctxObjectUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return usr, nil
}

// checkGroup returns a `group_id` field error if the group does not exist. 0 unsets the group.
func (api *userApi) checkGroup(ctx echo.Context, groupID *int64) error {
	if groupID == nil || *groupID == 0 {
		return nil
	}
	if _, err := api.groups.GetByID(ctx.Request().Context(), *groupID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "group_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return nil
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}
	if err = api.checkGroup(ctx, data.GroupID); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	users, err := api.svc.Query(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, list(users))
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	// `Email`, `Roles` and `GroupID` can only be changed by admin; banning goes through ban/unban
	if !ctxUsr.IsAdmin() && data.HasAdminFields() {
		return core.ErrPermissionDenied
	}
	if err = data.Validate(usr, api.validate); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}
	if err = api.checkGroup(ctx, data.GroupID); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return core.ErrPermissionDenied
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if core.ContainsInt64(query.IDs, ctxUsr.ID) {
		return core.ErrPermissionDenied
	}

	if err = api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) setBanned(ctx echo.Context, banned bool) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return core.ErrPermissionDenied
	}

	usr, err = api.svc.SetBanned(ctx.Request().Context(), usr.ID, banned)
	if err != nil {
		return errors.Wrap(err, "setting banned")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) ban(ctx echo.Context) error {
	return api.setBanned(ctx, true)
}

func (api *userApi) unban(ctx echo.Context) error {
	return api.setBanned(ctx, false)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) averages(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	avgs, err := api.gradeBook.StudentAverages(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing student averages")
	}
	return ctx.JSON(http.StatusOK, list(avgs))
}

func (api *userApi) queryChats(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	chats, err := api.chats.QueryForUser(ctx.Request().Context(), usr.ID, q)
	if err != nil {
		return errors.Wrap(err, "querying user chats")
	}
	return ctx.JSON(http.StatusOK, list(chats))
}
