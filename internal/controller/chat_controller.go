package controller

import (
	"lexchat-be/internal/dto"
	"lexchat-be/internal/pkg/serverutils"
	"lexchat-be/internal/service"
	internalWS "lexchat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Open(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IConversationService
	hub     *internalWS.Hub
}

func NewChatController(svc service.IConversationService, hub *internalWS.Hub) IChatController {
	return &chatController{service: svc, hub: hub}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat", serverutils.OptionalJwtMiddleware)
	h.Post("/start", c.Start)
	h.Post("/:id/open", c.Open)
	h.Post("/:id/ask", c.Ask)
	h.Get("/:id/history", c.History)

	// Reveal frame stream. The upgrade check runs as middleware so plain
	// HTTP requests get a clean 426 instead of a hijack failure.
	r.Use("/ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			ctx.Locals("client_key", serverutils.ClientKey(ctx))
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		key, _ := conn.Locals("client_key").(string)
		internalWS.ServeWs(c.hub, conn, key)
	}))
}

func caller(ctx *fiber.Ctx) service.Caller {
	return service.Caller{
		UserId:    serverutils.Identity(ctx),
		ClientKey: serverutils.ClientKey(ctx),
	}
}

func conversationId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}
	return id, nil
}

func (c *chatController) Start(ctx *fiber.Ctx) error {
	var req dto.StartConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Start(ctx.Context(), caller(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Conversation started", res))
}

func (c *chatController) Open(ctx *fiber.Ctx) error {
	id, err := conversationId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Open(ctx.Context(), caller(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation opened", res))
}

func (c *chatController) Ask(ctx *fiber.Ctx) error {
	id, err := conversationId(ctx)
	if err != nil {
		return err
	}

	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.Context(), caller(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Question accepted", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	id, err := conversationId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.History(ctx.Context(), caller(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation history", res))
}
