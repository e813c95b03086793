package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/group"
)

type groupApi struct {
	svc       group.Service
	events    event.Service
	gradeBook grade.GradeBook
	validate  *validator.Validate
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := groupApi{
		svc:       deps.GroupSvc,
		events:    deps.EventSvc,
		gradeBook: deps.GradeBook,
		validate:  deps.Validate,
	}

	gg := g.Group("/groups", jwt)
	gg.POST("", api.create, adminMiddleware())
	gg.GET("", api.query)

	// detail endpoints
	dg := gg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/members", api.members, staffMiddleware())
	dg.POST("/members", api.invite, adminMiddleware())
	dg.DELETE("/members/:userId", api.removeMember, adminMiddleware())
	dg.GET("/subjects", api.subjects)
	dg.POST("/subjects", api.linkSubject, adminMiddleware())
	dg.DELETE("/subjects/:subjectId", api.unlinkSubject, adminMiddleware())
	dg.GET("/events", api.queryEvents)
	dg.GET("/report", api.report, staffMiddleware())
}

// Handlers

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) query(ctx echo.Context) error {
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	groups, err := api.svc.Query(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, list(groups))
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	grp, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data group.UpdateGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) members(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	users, err := api.svc.Members(ctx.Request().Context(), id, q)
	if err != nil {
		return errors.Wrap(err, "querying group members")
	}
	return ctx.JSON(http.StatusOK, list(users))
}

func (api *groupApi) invite(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data group.MemberRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MemberRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Invite(ctx.Request().Context(), id, data.UserID)
	if err != nil {
		return errors.Wrap(err, "inviting user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *groupApi) removeMember(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	if err = api.svc.RemoveMember(ctx.Request().Context(), id, userID); err != nil {
		return errors.Wrap(err, "removing group member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) subjects(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	subjects, err := api.svc.Subjects(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying group subjects")
	}
	return ctx.JSON(http.StatusOK, list(subjects))
}

func (api *groupApi) linkSubject(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data group.SubjectRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubjectRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	if err = api.svc.LinkSubject(ctx.Request().Context(), id, data.SubjectID); err != nil {
		return errors.Wrap(err, "linking subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) unlinkSubject(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	subjectID, err := paramID(ctx, "subjectId")
	if err != nil {
		return err
	}
	if err = api.svc.UnlinkSubject(ctx.Request().Context(), id, subjectID); err != nil {
		return errors.Wrap(err, "unlinking subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) queryEvents(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding group by ID")
	}

	events, err := api.events.Query(ctx.Request().Context(), q.With(core.Eq("group_id", id)))
	if err != nil {
		return errors.Wrap(err, "querying group events")
	}
	return ctx.JSON(http.StatusOK, list(events))
}

func (api *groupApi) report(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	report, err := api.gradeBook.GroupReport(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "computing group report")
	}
	return ctx.JSON(http.StatusOK, report)
}
