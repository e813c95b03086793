package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/chat"
)

type chatApi struct {
	svc      chat.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := chatApi{svc: deps.ChatSvc, validate: deps.Validate}

	cg := g.Group("/chats", jwt)
	cg.POST("", api.create)
	cg.GET("", api.queryAll, adminMiddleware())
	cg.GET("/mine", api.queryMine)
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.destroy)
	cg.POST("/:id/messages", api.sendMessage)
	cg.GET("/:id/messages", api.messages)
}

// create returns 201 with a new chat, or 200 with the chat the pair already has.
func (api *chatApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data chat.NewChat
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChat")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	c, created, err := api.svc.Create(ctx.Request().Context(), usr, data.UserID)
	if err != nil {
		return errors.Wrap(err, "creating chat")
	}
	if created {
		return ctx.JSON(http.StatusCreated, c)
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *chatApi) queryAll(ctx echo.Context) error {
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	chats, err := api.svc.QueryAll(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying chats")
	}
	return ctx.JSON(http.StatusOK, list(chats))
}

func (api *chatApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	chats, err := api.svc.QueryForUser(ctx.Request().Context(), usr.ID, q)
	if err != nil {
		return errors.Wrap(err, "querying user chats")
	}
	return ctx.JSON(http.StatusOK, list(chats))
}

func (api *chatApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "finding chat by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *chatApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting chat")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) sendMessage(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data chat.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.svc.SendMessage(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) messages(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}

	msgs, err := api.svc.Messages(ctx.Request().Context(), usr, id, q)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	return ctx.JSON(http.StatusOK, list(msgs))
}
