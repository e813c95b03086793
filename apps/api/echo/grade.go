package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/grade"
)

type gradeApi struct {
	svc       grade.Service
	gradeBook grade.GradeBook
	validate  *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{svc: deps.GradeSvc, gradeBook: deps.GradeBook, validate: deps.Validate}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.create, staffMiddleware())
	gg.GET("", api.query, staffMiddleware())
	gg.GET("/mine", api.queryMine)
	gg.GET("/mine/averages", api.myAverages)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update, staffMiddleware())
	gg.DELETE("/:id", api.destroy, staffMiddleware())
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewTaskGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTaskGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *gradeApi) query(ctx echo.Context) error {
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.Query(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, list(grades))
}

func (api *gradeApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.Query(ctx.Request().Context(), q.With(core.Eq("user_id", usr.ID)))
	if err != nil {
		return errors.Wrap(err, "querying user grades")
	}
	return ctx.JSON(http.StatusOK, list(grades))
}

func (api *gradeApi) myAverages(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	avgs, err := api.gradeBook.StudentAverages(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing student averages")
	}
	return ctx.JSON(http.StatusOK, list(avgs))
}

// retrieve lets staff see any grade; students only see their own.
func (api *gradeApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grd, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding grade by ID")
	}
	if !usr.IsStaff() && grd.UserID != usr.ID {
		return grade.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data grade.UpdateTaskGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTaskGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}
